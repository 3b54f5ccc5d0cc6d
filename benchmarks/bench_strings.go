package benchmarks

import (
	"runtime"
	"strings"

	"github.com/gobench-cli/gobench"
)

func init() {
	gobench.Register(bench_string_concat,
		gobench.ParametrizeRows(
			[]string{"parts", "length"},
			[]any{10, 16},
			[]any{100, 16},
			[]any{100, 256},
		),
	)

	gobench.Register(bench_string_builder,
		gobench.Parametrize(
			gobench.Values("parts", 10, 100),
		),
		gobench.WithConfig(gobench.Override{Warmups: gobench.Uint(3)}),
	)

	gobench.Register(bench_string_repeat_large,
		gobench.SkipWhen(func() bool { return runtime.GOARCH == "386" },
			"needs a 64-bit address space"),
	)
}

func bench_string_concat(args gobench.Args) {
	parts := args["parts"].(int)
	piece := strings.Repeat("x", args["length"].(int))
	s := ""
	for i := 0; i < parts; i++ {
		s += piece
	}
	_ = s
}

func bench_string_builder(args gobench.Args) {
	parts := args["parts"].(int)
	var b strings.Builder
	for i := 0; i < parts; i++ {
		b.WriteString("hello, world")
	}
	_ = b.String()
}

func bench_string_repeat_large(args gobench.Args) {
	_ = strings.Repeat("abcdefgh", 1<<20)
}
