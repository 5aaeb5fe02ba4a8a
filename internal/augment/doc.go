// Package augment perturbs training segments with additive noise, time
// stretching, and pitch shifting. Every transform is optional, fires with a
// configured probability, and draws from a seeded generator.
package augment
