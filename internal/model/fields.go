package model

import (
	"fmt"
	"strconv"
)

// FieldKind is the closed set of voucher display fields. Accessors are
// resolved through a lookup table built at construction, one function per
// kind, rather than string-keyed dispatch at call time.
type FieldKind int

const (
	FieldVoucherNumber FieldKind = iota
	FieldStatusLabel
	FieldFaceValue
	FieldRemainingValue
	FieldRemainingQuantity
	FieldExpirationDate
)

type fieldAccessor func(v *Voucher) string

// FieldSet resolves display values for voucher fields.
type FieldSet struct {
	accessors map[FieldKind]fieldAccessor
}

// NewFieldSet builds the accessor table.
func NewFieldSet() *FieldSet {
	return &FieldSet{
		accessors: map[FieldKind]fieldAccessor{
			FieldVoucherNumber: func(v *Voucher) string { return v.Number },
			FieldStatusLabel:   func(v *Voucher) string { return v.Status.Label() },
			FieldFaceValue: func(v *Voucher) string {
				return fmt.Sprintf("%s %s", v.FaceValue.StringFixed(2), v.Currency)
			},
			FieldRemainingValue: func(v *Voucher) string {
				return fmt.Sprintf("%s %s", v.RemainingValue(false).StringFixed(2), v.Currency)
			},
			FieldRemainingQuantity: func(v *Voucher) string {
				return strconv.Itoa(v.RemainingQuantity())
			},
			FieldExpirationDate: func(v *Voucher) string {
				if v.ExpirationDate == nil {
					return ""
				}
				return v.ExpirationDate.Format("2006-01-02")
			},
		},
	}
}

// Value returns the display value for the given field kind. The second
// return is false for unknown kinds.
func (fs *FieldSet) Value(v *Voucher, kind FieldKind) (string, bool) {
	accessor, ok := fs.accessors[kind]
	if !ok {
		return "", false
	}
	return accessor(v), true
}
