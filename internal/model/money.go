package model

import (
    "database/sql/driver"
    "errors"
    "fmt"
    "strconv"
    "strings"
)

// Money is an amount in minor currency units (cents).  It is stored in
// DECIMAL(10,2) columns and rendered with exactly two decimal places.
type Money int64

// ErrInvalidMoney is returned when a decimal amount cannot be parsed.
var ErrInvalidMoney = errors.New("invalid money amount")

// ParseMoney parses a decimal string such as "12", "12.5" or "12.50".
// More than two fractional digits and negative values are rejected.
func ParseMoney(s string) (Money, error) {
    s = strings.TrimSpace(s)
    if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
        return 0, ErrInvalidMoney
    }
    whole, frac, hasFrac := strings.Cut(s, ".")
    if whole == "" {
        whole = "0"
    }
    if hasFrac && (frac == "" || len(frac) > 2) {
        return 0, ErrInvalidMoney
    }
    if !allDigits(whole) || (hasFrac && !allDigits(frac)) {
        return 0, ErrInvalidMoney
    }
    for len(frac) < 2 {
        frac += "0"
    }
    w, err := strconv.ParseInt(whole, 10, 64)
    if err != nil {
        return 0, ErrInvalidMoney
    }
    f, err := strconv.ParseInt(frac, 10, 64)
    if err != nil {
        return 0, ErrInvalidMoney
    }
    return Money(w*100 + f), nil
}

func allDigits(s string) bool {
    for i := 0; i < len(s); i++ {
        if s[i] < '0' || s[i] > '9' {
            return false
        }
    }
    return true
}

// Units returns the whole currency units, rounding fractions up.
func (m Money) Units() int64 {
    return (int64(m) + 99) / 100
}

func (m Money) String() string {
    return fmt.Sprintf("%d.%02d", int64(m)/100, int64(m)%100)
}

// MarshalJSON renders the amount as a JSON string to keep two-place precision.
func (m Money) MarshalJSON() ([]byte, error) {
    return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts either a quoted decimal or a bare JSON number.
func (m *Money) UnmarshalJSON(b []byte) error {
    s := strings.Trim(string(b), `"`)
    v, err := ParseMoney(s)
    if err != nil {
        return err
    }
    *m = v
    return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) { return m.String(), nil }

// Scan implements sql.Scanner for DECIMAL columns, which the MySQL driver
// returns as []byte.
func (m *Money) Scan(src interface{}) error {
    switch v := src.(type) {
    case nil:
        *m = 0
        return nil
    case []byte:
        return m.scanString(string(v))
    case string:
        return m.scanString(v)
    case int64:
        *m = Money(v * 100)
        return nil
    case float64:
        return m.scanString(strconv.FormatFloat(v, 'f', 2, 64))
    }
    return fmt.Errorf("cannot scan %T into Money", src)
}

func (m *Money) scanString(s string) error {
    v, err := ParseMoney(s)
    if err != nil {
        return err
    }
    *m = v
    return nil
}
