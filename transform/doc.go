// Package transform implements invertible series transforms: natural log,
// lag differencing and linear scaling.
//
// A Pipeline records every transform it applies so the result can be mapped
// back to the original scale:
//
//	p := transform.NewPipeline()
//	logged, err := p.Log(series)
//	scaled, err := p.Scale(logged, 100)
//	...
//	original, err := p.Invert(scaled)
//	price, err := p.InvertValue(forecast) // pointwise steps only
//
// Differencing drops the leading observations and keeps them as anchors,
// so it cannot be inverted one value at a time.
package transform
