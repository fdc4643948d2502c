package util

// TransformOrNil returns nil if the value is nil, otherwise applies the transform function.
//
// This helper is used when flattening records into SQL argument lists where an
// absent optional field must land as SQL NULL.
//
// Example:
//
//	token := util.TransformOrNil(record.ChallengerCollateral, func(c types.Collateral) any { return c.Token.Address() })
func TransformOrNil[T any](value *T, transform func(T) any) any {
	if value == nil {
		return nil
	}
	return transform(*value)
}
