// Command latticegen writes synthetic XYZR molecules for exercising
// sasprobe: cubic lattice blocks, an enclosed tetrahedral cluster and
// seeded random clusters.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"

	"github.com/echoflaresat/sasprobe/molecule"
	"github.com/echoflaresat/sasprobe/vectors"
)

func main() {
	shape := flag.String("shape", "lattice", "lattice, tetra or random")
	n := flag.Int("n", 5, "lattice edge length or random atom count")
	spacing := flag.Float64("spacing", 2.0, "lattice spacing in Å")
	radius := flag.Float64("radius", 1.6, "atom radius in Å (lattice and random)")
	spread := flag.Float64("spread", 12.0, "random cluster box edge in Å")
	seed := flag.Uint64("seed", 1, "random cluster seed")
	out := flag.String("out", "", "output file (default stdout)")
	flag.Parse()

	var atoms []molecule.Atom
	switch *shape {
	case "lattice":
		atoms = lattice(*n, *spacing, *radius)
	case "tetra":
		atoms = tetrahedralCluster()
	case "random":
		atoms = randomCluster(*n, *spread, *radius, *seed)
	default:
		log.Fatalf("Unknown shape %q", *shape)
	}
	if len(atoms) == 0 {
		log.Fatalf("Shape %q with n=%d has no atoms", *shape, *n)
	}

	if *out == "" {
		if err := molecule.WriteXYZR(os.Stdout, atoms); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := writeXYZR(*out, atoms); err != nil {
		log.Fatalf("Failed to write %s: %v", *out, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d atoms to %s\n", len(atoms), *out)
}

// lattice returns an n×n×n cubic block, x varying slowest.
func lattice(n int, spacing, radius float64) []molecule.Atom {
	atoms := make([]molecule.Atom, 0, n*n*n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				atoms = append(atoms, molecule.Atom{
					Center: vectors.Vec3{X: float64(x) * spacing, Y: float64(y) * spacing, Z: float64(z) * spacing},
					Radius: radius,
				})
			}
		}
	}
	return atoms
}

// tetrahedralCluster is a small atom at the origin buried by four large
// ones on the vertices of a tetrahedron. With no probe only atom 0 is
// internal.
func tetrahedralCluster() []molecule.Atom {
	atoms := []molecule.Atom{{Center: vectors.Vec3{}, Radius: 0.5}}
	for _, v := range []vectors.Vec3{{X: 1, Y: 1, Z: 1}, {X: 1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: -1, Y: -1, Z: 1}} {
		atoms = append(atoms, molecule.Atom{Center: v.Normalize().Scale(2), Radius: 2})
	}
	return atoms
}

// randomCluster scatters n atoms uniformly in a cube of edge spread, with
// radii jittered by ±25%.
func randomCluster(n int, spread, radius float64, seed uint64) []molecule.Atom {
	rng := rand.New(rand.NewPCG(seed, uint64(n)))
	atoms := make([]molecule.Atom, n)
	for i := range atoms {
		atoms[i] = molecule.Atom{
			Center: vectors.Vec3{X: rng.Float64() * spread, Y: rng.Float64() * spread, Z: rng.Float64() * spread},
			Radius: radius * (0.75 + 0.5*rng.Float64()),
		}
	}
	return atoms
}

func writeXYZR(path string, atoms []molecule.Atom) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := molecule.WriteXYZR(f, atoms); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
