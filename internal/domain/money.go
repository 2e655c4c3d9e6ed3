package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorUnitExp — количество знаков после запятой у валюты магазина (центы/сентаво).
const minorUnitExp = 2

// Money хранит сумму в минимальных денежных единицах.
// Все расчёты ведутся в целых числах; decimal используется только на границе JSON.
type Money int64

// MoneyFromDecimal переводит десятичную сумму (например, "10.50") в минимальные единицы.
// Округление идёт от нуля до ближайшей минимальной единицы.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Shift(minorUnitExp).Round(0).IntPart())
}

// ParseMoney разбирает строку с десятичной суммой.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid money amount %q", ErrValidation, s)
	}
	return MoneyFromDecimal(d), nil
}

// Minor возвращает сумму в минимальных единицах.
func (m Money) Minor() int64 { return int64(m) }

// Decimal возвращает сумму в основных единицах валюты.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -minorUnitExp)
}

// Mul умножает цену за единицу на количество.
func (m Money) Mul(qty int) Money {
	return m * Money(qty)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(minorUnitExp)
}

// MarshalJSON отдаёт сумму числом с двумя знаками: 20.00.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON принимает число или строку с десятичной суммой.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: invalid money amount: %v", ErrValidation, err)
	}
	*m = MoneyFromDecimal(d)
	return nil
}
