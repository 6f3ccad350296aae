package utils

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a nullable Postgres numeric without going through
// float64. NaN and infinities come back as invalid.
func NumericToDecimal(value pgtype.Numeric) decimal.NullDecimal {
	if !value.Valid || value.NaN || value.InfinityModifier != pgtype.Finite || value.Int == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromBigInt(value.Int, value.Exp))
}

// NumericOrZero is NumericToDecimal with invalid values mapped to zero.
func NumericOrZero(value pgtype.Numeric) decimal.Decimal {
	d := NumericToDecimal(value)
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
