package model

import "testing"

func TestParseMoney(t *testing.T) {
    cases := []struct {
        in      string
        want    Money
        wantErr bool
    }{
        {"0", 0, false},
        {"12", 1200, false},
        {"12.5", 1250, false},
        {"12.05", 1205, false},
        {".75", 75, false},
        {"1500.00", 150000, false},
        {"12.345", 0, true},
        {"-1", 0, true},
        {"abc", 0, true},
        {"", 0, true},
        {"3.", 0, true},
        {"1.-5", 0, true},
        {"0.-9", 0, true},
        {"1.+5", 0, true},
        {"1a", 0, true},
        {"+1", 0, true},
    }
    for _, tc := range cases {
        got, err := ParseMoney(tc.in)
        if tc.wantErr {
            if err == nil {
                t.Errorf("ParseMoney(%q) expected error, got %v", tc.in, got)
            }
            continue
        }
        if err != nil {
            t.Errorf("ParseMoney(%q) unexpected error: %v", tc.in, err)
            continue
        }
        if got != tc.want {
            t.Errorf("ParseMoney(%q) = %d, want %d", tc.in, got, tc.want)
        }
    }
}

func TestMoneyStringAndUnits(t *testing.T) {
    m := Money(150001)
    if m.String() != "1500.01" {
        t.Fatalf("String() = %q", m.String())
    }
    if m.Units() != 1501 {
        t.Fatalf("Units() = %d, want 1501", m.Units())
    }
    if Money(200).Units() != 2 {
        t.Fatalf("Units() of exact amount should not round up")
    }
}

func TestMoneyScan(t *testing.T) {
    var m Money
    if err := m.Scan([]byte("99.90")); err != nil || m != 9990 {
        t.Fatalf("Scan([]byte) = %d, %v", m, err)
    }
    if err := m.Scan(nil); err != nil || m != 0 {
        t.Fatalf("Scan(nil) = %d, %v", m, err)
    }
    if err := m.Scan(true); err == nil {
        t.Fatal("expected error scanning bool")
    }
}

func TestMoneyJSON(t *testing.T) {
    b, err := Money(1250).MarshalJSON()
    if err != nil || string(b) != `"12.50"` {
        t.Fatalf("MarshalJSON = %s, %v", b, err)
    }
    var m Money
    if err := m.UnmarshalJSON([]byte(`7.5`)); err != nil || m != 750 {
        t.Fatalf("UnmarshalJSON number = %d, %v", m, err)
    }
    if err := m.UnmarshalJSON([]byte(`"3.25"`)); err != nil || m != 325 {
        t.Fatalf("UnmarshalJSON string = %d, %v", m, err)
    }
}
