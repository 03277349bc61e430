package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина (как в генераторе мира)
const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Количество октав
)

// Noise - детерминированный генератор шума Перлина, привязанный к сиду.
// Экземпляр неизменяем после создания и безопасен для чтения из нескольких горутин.
type Noise struct {
	seed   int64
	perlin *perlin.Perlin
}

// NewNoise создаёт генератор шума для указанного сида
func NewNoise(seed int64) *Noise {
	return &Noise{
		seed:   seed,
		perlin: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
	}
}

// Seed возвращает сид генератора
func (n *Noise) Seed() int64 {
	return n.seed
}

// Noise1D возвращает значение шума в диапазоне [-1, 1]
func (n *Noise) Noise1D(x float64) float64 {
	return clamp(n.perlin.Noise1D(x), -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
