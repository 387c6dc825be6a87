package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vk/valuegraph/internal/builder"
	"github.com/vk/valuegraph/internal/graph"
)

// buildDocument is the JSON form of one build.
type buildDocument struct {
	View       string          `json:"view"`
	CalcConfig string          `json:"calc_config"`
	BuildID    string          `json:"build_id"`
	Repository string          `json:"repository"`
	Status     builder.Status  `json:"status"`
	Elapsed    string          `json:"elapsed"`
	Graph      *graph.Graph    `json:"graph"`
	Report     *builder.Report `json:"report"`
}

func render(w io.Writer, format string, builds []Build) error {
	switch format {
	case OutputJSON:
		return renderJSON(w, builds)
	case OutputDOT:
		return renderDOT(w, builds)
	default:
		return renderText(w, builds)
	}
}

func newDocument(b Build) buildDocument {
	r := b.Result
	return buildDocument{
		View:       b.View,
		CalcConfig: r.CalculationConfiguration,
		BuildID:    r.ID.String(),
		Repository: r.Version.String(),
		Status:     r.Status,
		Elapsed:    r.Elapsed.String(),
		Graph:      r.Graph,
		Report:     r.Report,
	}
}

func renderJSON(w io.Writer, builds []Build) error {
	docs := make([]buildDocument, 0, len(builds))
	for _, b := range builds {
		docs = append(docs, newDocument(b))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

func renderDOT(w io.Writer, builds []Build) error {
	for _, b := range builds {
		if _, err := fmt.Fprintf(w, "// view %s, calc config %s\n", b.View, b.Result.CalculationConfiguration); err != nil {
			return err
		}
		if err := b.Result.Graph.WriteDOT(w); err != nil {
			return err
		}
	}
	return nil
}

func renderText(w io.Writer, builds []Build) error {
	p := &printer{w: w}
	for i, b := range builds {
		r := b.Result
		if i > 0 {
			p.printf("\n")
		}
		p.printf("view %s / calc config %s\n", b.View, r.CalculationConfiguration)
		p.printf("  build %s on %s: %d nodes, %d satisfied, %d unsatisfied in %s\n",
			r.ID, r.Version, r.Graph.Len(), len(r.Graph.TerminalOutputs()), len(r.Report.Unsatisfied), r.Elapsed)
		for _, t := range r.Graph.TerminalOutputs() {
			p.printf("  + %s\n      => %s\n", t.Requirement, t.Specification)
		}
		for _, f := range r.Report.Unsatisfied {
			p.printf("  - %s\n", f)
		}
		for _, rj := range r.Report.Rejections {
			p.printf("  ~ %s rejected %s\n", rj.Requirement, rj.Reason)
		}
	}
	return p.err
}

// printer keeps the first write error so callers check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
