// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query cpu.prof

package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/edwinsyarief/hakoniwa"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

type comp3 struct {
	V int64
	W int64
}

type comp4 struct {
	V int64
	W int64
}

func main() {
	// CPU Profiling
	f, _ := os.Create("cpu.prof")
	_ = pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()

	count := 50
	iters := 10000
	entities := 100000
	run(count, iters, entities)

	// Memory Profiling
	memFile, _ := os.Create("mem.prof")
	defer memFile.Close()
	runtime.GC() // Trigger garbage collection
	_ = pprof.WriteHeapProfile(memFile)
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		schema := hakoniwa.NewSchema()
		c1 := hakoniwa.RegisterComponent[comp1](schema)
		c2 := hakoniwa.RegisterComponent[comp2](schema)
		c3 := hakoniwa.RegisterComponent[comp3](schema)
		c4 := hakoniwa.RegisterComponent[comp4](schema)
		def := hakoniwa.MakeDefinition(c1, c2, c3, c4)

		w := hakoniwa.NewWorldWithOptions(schema, hakoniwa.WorldOptions{InitialCapacity: numEntities})
		if _, err := w.CreateEntities(numEntities, def); err != nil {
			panic(err)
		}
		query := hakoniwa.NewQuery4[comp1, comp2, comp3, comp4](w)

		for range iters {
			query.Reset()
			for query.Next() {
				a, b, _, _ := query.Get()
				a.V += b.V
				a.W += b.W
			}
		}
		w.Dispose()
	}
}
