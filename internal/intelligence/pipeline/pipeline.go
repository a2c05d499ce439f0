package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/FloraTraits/internal/config"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/internal/intelligence/gazetteer"
	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
	"github.com/turtacn/FloraTraits/internal/intelligence/rules"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

// Options tune pass construction.
type Options struct {
	TaxonExtend int
	LinkRadius  int
	JobIDRadius int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		TaxonExtend: config.DefaultTaxonExtend,
		LinkRadius:  config.DefaultLinkRadius,
		JobIDRadius: config.DefaultJobIDRadius,
	}
}

// OptionsFrom reads the pipeline section of the service configuration.
func OptionsFrom(cfg config.PipelineConfig) Options {
	opts := DefaultOptions()
	if cfg.TaxonExtend > 0 {
		opts.TaxonExtend = cfg.TaxonExtend
	}
	if cfg.LinkRadius > 0 {
		opts.LinkRadius = cfg.LinkRadius
	}
	if cfg.JobIDRadius > 0 {
		opts.JobIDRadius = cfg.JobIDRadius
	}
	return opts
}

// declarer is implemented by every pass: the labels it adds to the
// document and the labels its lists mention.
type declarer interface {
	produces() []string
	references() []string
}

// Result is the outcome of one document run.
type Result struct {
	Doc    *annotation.Doc
	Spans  []*annotation.Span
	Traits []traits.Trait
	Record *traits.Record
}

// Pipeline is an immutable, validated pass sequence. Run is safe for
// concurrent use; every call works on its own document.
type Pipeline struct {
	gaz         *gazetteer.Gazetteer
	passes      []Pass
	opts        Options
	fingerprint string
	log         logging.Logger
}

// New builds the pipeline over the embedded vocabularies.
func New(opts Options, log logging.Logger) (*Pipeline, error) {
	gaz, err := gazetteer.Default()
	if err != nil {
		return nil, err
	}
	return NewWithGazetteer(gaz, opts, log)
}

// NewWithGazetteer builds the pipeline over gaz.
func NewWithGazetteer(gaz *gazetteer.Gazetteer, opts Options, log logging.Logger) (*Pipeline, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if opts.TaxonExtend < 0 || opts.LinkRadius <= 0 || opts.JobIDRadius <= 0 {
		return nil, errors.Newf(errors.ErrCodePipelineMissingConfig,
			"bad pipeline options: extend=%d link_radius=%d job_id_radius=%d",
			opts.TaxonExtend, opts.LinkRadius, opts.JobIDRadius)
	}

	passes, err := buildPasses(rules.New(gaz), opts)
	if err != nil {
		return nil, err
	}
	if err := Validate(gaz, passes); err != nil {
		return nil, err
	}

	p := &Pipeline{gaz: gaz, passes: passes, opts: opts, log: log.Named("pipeline")}
	p.fingerprint = p.computeFingerprint()
	p.log.Info("pipeline built",
		logging.Int("passes", len(passes)),
		logging.String("gazetteer", gaz.String()),
		logging.String("fingerprint", p.fingerprint))
	return p, nil
}

// Validate checks that every label a pass mentions was produced by the
// vocabulary or by an earlier pass.
func Validate(gaz *gazetteer.Gazetteer, passes []Pass) error {
	declared := map[string]bool{}
	for _, l := range gaz.Labels() {
		declared[l] = true
	}
	for _, p := range passes {
		d, ok := p.(declarer)
		if !ok {
			continue
		}
		for _, l := range d.references() {
			if !declared[l] {
				return errors.Newf(errors.ErrCodePipelineUndeclaredLabel,
					"pass %s references undeclared label %q", p.Name(), l)
			}
		}
		for _, l := range d.produces() {
			declared[l] = true
		}
	}
	return nil
}

// Gazetteer returns the vocabulary the pipeline runs with.
func (p *Pipeline) Gazetteer() *gazetteer.Gazetteer { return p.gaz }

// Fingerprint identifies the vocabulary, options and pass sequence. Two
// pipelines with the same fingerprint produce the same record for the same
// text, so it is safe to use in cache keys.
func (p *Pipeline) Fingerprint() string { return p.fingerprint }

func (p *Pipeline) computeFingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%d|%s", p.gaz.String(),
		p.opts.TaxonExtend, p.opts.LinkRadius, p.opts.JobIDRadius,
		strings.Join(p.PassNames(), ","))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// PassNames lists the passes in run order.
func (p *Pipeline) PassNames() []string {
	out := make([]string, len(p.passes))
	for i, ps := range p.passes {
		out[i] = ps.Name()
	}
	return out
}

// Run tokenizes text, runs every pass and serializes the surviving traits.
func (p *Pipeline) Run(text string) *Result {
	start := time.Now()
	doc := annotation.Tokenize(text)
	for _, ps := range p.passes {
		ps.Run(doc)
	}

	res := &Result{Doc: doc}
	for _, s := range doc.Spans() {
		if s.Trait == nil {
			continue
		}
		res.Spans = append(res.Spans, s)
		res.Traits = append(res.Traits, s.Trait)
	}
	res.Record = traits.Serialize(res.Traits)

	p.log.Debug("document parsed",
		logging.Int("tokens", len(doc.Tokens)),
		logging.Int("traits", len(res.Traits)),
		logging.Duration("elapsed", time.Since(start)))
	return res
}

func buildPasses(rs *rules.Set, opts Options) ([]Pass, error) {
	b := &passBuilder{}
	b.add(&termPass{gaz: rs.Gazetteer()})

	// Taxon passes keep the span they grow as a child, so the bare binomial
	// stays addressable under the final name.
	taxa := []string{"taxon", "single", "linnaeus", "not_linnaeus"}
	b.trait("taxon", rs.TaxonRules(), nil, nil, nil)
	b.trait("taxon_linnaeus", rs.LinnaeusRules(), []string{"taxon"}, []string{"taxon"}, nil)
	b.trait("taxon_auth", rs.AuthRules(), []string{"taxon"}, []string{"taxon"}, nil)
	for i := 1; i <= opts.TaxonExtend; i++ {
		b.trait(fmt.Sprintf("taxon_extend_%d", i), rs.ExtendRules(), taxa, taxa, nil)
	}
	b.trait("taxon_rename", rs.RenameRules(), taxa, taxa, nil)
	b.trait("assoc_taxon_label", rs.AssocLabelRules(), nil, nil, nil)
	b.add(AssociatedTaxa{})
	b.add(NewCleanupPass("assoc_cleanup", "assoc_taxon_label"))
	b.trait("taxon_like", rs.TaxonLikeRules(), []string{"taxon", "multi_taxon"}, nil, nil)

	b.trait("admin_unit", rs.AdminUnitRules(), nil, nil, nil)

	b.trait("date", rs.DateRules(), nil, nil, nil)
	b.trait("name", rs.NameRules(), nil, nil, nil)
	b.trait("job", rs.JobRules(), []string{"name"}, nil, nil)
	b.trait("other_collector", rs.OtherCollectorRules(), []string{"job"}, nil, nil)
	b.add(NewCleanupPass("job_cleanup", "name"))
	b.trait("id_number", rs.IDNumberRules(), nil, nil, nil)

	b.trait("locality", rs.LocalityRules(), nil, nil, nil)
	for i := 1; i <= 2; i++ {
		b.trait(fmt.Sprintf("locality_extend_%d", i), rs.LocalityExtendRules(), nil, nil, []string{"locality"})
	}
	b.trait("locality_end", rs.LocalityEndRules(), []string{"locality"}, nil, nil)

	b.trait("part", rs.PartRules(), nil, nil, nil)
	b.trait("subpart", rs.SubpartRules(), []string{"part"}, nil, nil)
	b.trait("sex", rs.SexRules(), nil, nil, nil)
	b.trait("part_location", rs.PartLocationRules(), []string{"part", "subpart"}, nil, nil)

	b.trait("range", rs.RangeRules(), nil, nil, nil)
	numeric := append(rs.SizeRules(), rs.CountRules()...)
	b.trait("numeric", numeric, []string{"range", "sex", "part", "subpart"}, []string{"range"}, nil)
	b.add(NewCleanupPass("numeric_cleanup", "range", "per_count"))

	b.trait("descriptor", rs.DescriptorRules(), nil, nil, nil)

	descriptors := rules.LinkedKinds
	numbers := []string{"size", "count"}
	b.add(&LinkPass{
		name:     "link_sex",
		Parents:  []string{"sex"},
		Children: join([]string{"part", "subpart"}, numbers, descriptors),
		Weights:  ForwardWeights,
	})
	b.add(&LinkPass{
		name:     "link_part",
		Parents:  []string{"part"},
		Children: join([]string{"subpart"}, descriptors),
		Weights:  ForwardWeights,
		Reverse:  ReverseWeights,
	})
	b.add(&LinkPass{
		name:     "link_part_once",
		Parents:  []string{"part"},
		Children: numbers,
		Weights:  ForwardWeights,
		MaxLinks: 1,
		Differ:   []string{"sex", "dimensions"},
	})
	b.add(&LinkPass{
		name:     "link_subpart",
		Parents:  []string{"subpart"},
		Children: descriptors,
		Weights:  ForwardWeights,
		Reverse:  ReverseWeights,
	})
	b.add(&LinkPass{
		name:     "link_subpart_once",
		Parents:  []string{"subpart"},
		Children: numbers,
		Weights:  ForwardWeights,
		MaxLinks: 1,
		Differ:   []string{"sex", "dimensions"},
	})
	b.add(&LinkPass{
		name:     "link_location",
		Parents:  []string{"part_location"},
		Children: join([]string{"part", "subpart"}, numbers, descriptors),
		Weights:  ForwardWeights,
		Reverse:  ReverseWeights,
	})

	b.add(&CleanupPass{name: "term_cleanup", Terms: true})

	b.add(NewFilterPass("delete_missing",
		DeleteMissing("color", "count", "shape", "size", "surface", "margin"),
		"color", "count", "shape", "size", "surface", "margin"))
	b.add(NewFilterPass("delete_too_far", DeleteTooFar(opts.LinkRadius, "count"), "count"))
	b.add(NewFilterPass("job_id",
		NearContext(opts.JobIDRadius, []string{"job", "id_number"}, []string{"job", "id_number", "date"}),
		"job", "id_number", "date"))
	b.add(PruneLocalities{})
	b.add(NewFilterPass("record_number", RecordNumber(), "id_number"))

	return b.passes, b.err
}

type passBuilder struct {
	passes []Pass
	err    error
}

func (b *passBuilder) add(p Pass) {
	if b.err == nil {
		b.passes = append(b.passes, p)
	}
}

func (b *passBuilder) trait(name string, rs []*matcher.Rule, overwrite, keep, merge []string) {
	if b.err != nil {
		return
	}
	p, err := NewTraitPass(name, rs, overwrite, keep, merge)
	if err != nil {
		b.err = errors.Wrap(err, errors.CodeUnknown, "pass "+name)
		return
	}
	b.passes = append(b.passes, p)
}

func join(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
