package render

type rgb struct {
	R, G, B int
}

// tab10 is the ten-color categorical palette used for clusters.
var tab10 = []rgb{
	{0x1f, 0x77, 0xb4},
	{0xff, 0x7f, 0x0e},
	{0x2c, 0xa0, 0x2c},
	{0xd6, 0x27, 0x28},
	{0x94, 0x67, 0xbd},
	{0x8c, 0x56, 0x4b},
	{0xe3, 0x77, 0xc2},
	{0x7f, 0x7f, 0x7f},
	{0xbc, 0xbd, 0x22},
	{0x17, 0xbe, 0xcf},
}

func clusterColor(label int) rgb {
	if label < 0 {
		label = -label
	}
	return tab10[label%len(tab10)]
}

func (c rgb) lighten(f float64) rgb {
	mix := func(v int) int { return v + int(float64(255-v)*f) }
	return rgb{mix(c.R), mix(c.G), mix(c.B)}
}
