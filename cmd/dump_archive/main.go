package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/probelab/saeprobe/internal/tensor"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: dump_archive <archive.safetensors[.zst]>")
	}
	path := flag.Arg(0)

	tensors, err := tensor.Load(path)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", path, err)
	}

	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("%s: %d tensors\n\n", path, len(names))
	for _, name := range names {
		d := tensors[name]
		min, max, mean, nonzero := stats(d.Data)
		fmt.Printf("%-30s shape=%v elements=%d\n", name, d.Shape, len(d.Data))
		fmt.Printf("%-30s min=%.6g max=%.6g mean=%.6g nonzero=%d\n\n", "", min, max, mean, nonzero)
	}
}

func stats(data []float32) (min, max float32, mean float64, nonzero int) {
	if len(data) == 0 {
		return 0, 0, 0, 0
	}
	min, max = data[0], data[0]
	var sum float64
	for _, v := range data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += float64(v)
		if v != 0 {
			nonzero++
		}
	}
	mean = sum / float64(len(data))
	return min, max, mean, nonzero
}
