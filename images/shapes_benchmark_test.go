package images

import (
	"math/rand"
	"testing"
)

func BenchmarkCalculateIoU(b *testing.B) {
	cases := []struct {
		name string
		r, o Rect
	}{
		{"disjoint", Rect{0, 0, 100, 100}, Rect{200, 200, 300, 300}},
		{"identical", Rect{50, 50, 150, 150}, Rect{50, 50, 150, 150}},
		{"partial", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}},
		{"touching", Rect{0, 0, 100, 100}, Rect{100, 0, 200, 100}},
	}

	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = CalculateIoU(c.r, c.o)
			}
		})
	}

	b.Run("random", func(b *testing.B) {
		rng := rand.New(rand.NewSource(1))
		pairs := make([][2]Rect, 1000)
		for i := range pairs {
			for j := range pairs[i] {
				x, y := float32(rng.Intn(1920)), float32(rng.Intn(1080))
				w, h := float32(rng.Intn(300)+20), float32(rng.Intn(300)+20)
				pairs[i][j] = Rect{X1: x, Y1: y, X2: x + w, Y2: y + h}
			}
		}

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			p := pairs[i%len(pairs)]
			_ = CalculateIoU(p[0], p[1])
		}
	})
}
