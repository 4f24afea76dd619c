package main

import (
	"flag"
	"fmt"
	"html/template"
	"log"
	"os"

	json "github.com/goccy/go-json"

	"github.com/probelab/saeprobe/internal/logger"
	"github.com/probelab/saeprobe/internal/tensor"
)

// pageTemplate shades each token green in proportion to the feature's
// activation strength on it.
var pageTemplate = template.Must(template.New("heatmap").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Feature {{.Feature}}</title></head>
<body style="font-family: monospace; line-height: 1.8">
<h3>Feature {{.Feature}} (max activation {{printf "%.4f" .Max}})</h3>
<p>
{{- range .Tokens}}
<span style="background-color: rgba(0, 200, 0, {{printf "%.3f" .Alpha}})" title="{{printf "%.4f" .Activation}}">{{.Text}}</span>
{{- end}}
</p>
</body>
</html>
`))

type tokenCell struct {
	Text       string
	Activation float32
	Alpha      float64
}

type page struct {
	Feature int
	Max     float32
	Tokens  []tokenCell
}

func main() {
	inputPath := flag.String("input-path", "", "Activations archive with an \"activations\" token x feature matrix")
	tokensPath := flag.String("tokens-path", "", "JSON array of token strings, one per activation row")
	feature := flag.Int("feature", -1, "Feature index to visualize")
	outputPath := flag.String("output", "heatmap.html", "Output HTML file")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("--input-path required")
	}
	if *tokensPath == "" {
		log.Fatal("--tokens-path required")
	}
	if *feature < 0 {
		log.Fatal("--feature required")
	}

	logger.Setup("info", "console")

	tensors, err := tensor.Load(*inputPath)
	if err != nil {
		log.Fatalf("Failed to load activations: %v", err)
	}
	d, ok := tensors["activations"]
	if !ok {
		log.Fatalf("Tensor \"activations\" not found in %s", *inputPath)
	}
	acts, err := d.Matrix()
	if err != nil {
		log.Fatalf("Tensor \"activations\": %v", err)
	}
	if *feature >= acts.Cols {
		log.Fatalf("Feature %d out of range; matrix has %d features", *feature, acts.Cols)
	}

	raw, err := os.ReadFile(*tokensPath)
	if err != nil {
		log.Fatalf("Failed to read tokens: %v", err)
	}
	var tokens []string
	if err := json.Unmarshal(raw, &tokens); err != nil {
		log.Fatalf("Failed to parse tokens: %v", err)
	}
	if len(tokens) != acts.Rows {
		log.Fatalf("Have %d tokens but %d activation rows", len(tokens), acts.Rows)
	}

	p := page{Feature: *feature}
	for i := range tokens {
		a := acts.At(i, *feature)
		if a > p.Max {
			p.Max = a
		}
		p.Tokens = append(p.Tokens, tokenCell{Text: tokens[i], Activation: a})
	}
	for i := range p.Tokens {
		if p.Max > 0 && p.Tokens[i].Activation > 0 {
			p.Tokens[i].Alpha = float64(p.Tokens[i].Activation / p.Max)
		}
	}

	out, err := os.Create(*outputPath)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	defer out.Close()
	if err := pageTemplate.Execute(out, p); err != nil {
		log.Fatalf("Failed to render: %v", err)
	}
	fmt.Printf("Wrote %s\n", *outputPath)
}
