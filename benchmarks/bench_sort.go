// Package benchmarks holds the project's own benchmark suite. Each file
// matching bench_*.go registers its cases at init time and is picked up by
// `gobench run`.
package benchmarks

import (
	"math/rand"
	"sort"

	"github.com/gobench-cli/gobench"
)

func init() {
	gobench.Register(bench_sort_ints,
		gobench.Parametrize(
			gobench.Values("size", 100, 1000, 10000),
		),
		gobench.Setup(func(args gobench.Args) gobench.Args {
			size := args["size"].(int)
			data := make([]int, size)
			rng := rand.New(rand.NewSource(42))
			for i := range data {
				data[i] = rng.Int()
			}
			args["data"] = data
			return args
		}),
	)

	gobench.Register(bench_sort_presorted,
		gobench.WithConfig(gobench.Override{Repeat: gobench.Uint(10)}),
		gobench.Meta(map[string]any{"group": "sort"}),
	)
}

func bench_sort_ints(args gobench.Args) {
	data := args["data"].([]int)
	buf := make([]int, len(data))
	copy(buf, data)
	sort.Ints(buf)
}

func bench_sort_presorted(args gobench.Args) {
	data := make([]int, 1000)
	for i := range data {
		data[i] = i
	}
	sort.Ints(data)
}
