// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"github.com/edwinsyarief/hakoniwa"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	count := 50
	iters := 10000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(count, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		schema := hakoniwa.NewSchema()
		c1 := hakoniwa.RegisterComponent[comp1](schema)
		c2 := hakoniwa.RegisterComponent[comp2](schema)
		def := hakoniwa.MakeDefinition(c1, c2)

		w := hakoniwa.NewWorld(schema)
		query := hakoniwa.NewQuery2[comp1, comp2](w)

		for range iters {
			entities, _ := w.CreateEntities(numEntities, def)
			query.Reset()
			for query.Next() {
				a, b := query.Get()
				a.V += b.V
				a.W += b.W
			}
			for _, e := range entities {
				_ = w.DestroyEntity(e)
			}
		}
		w.Dispose()
	}
}
