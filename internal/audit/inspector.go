package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/brightway-clinics/seo-audit/pkg/searchconsole"
)

// IndexInspection is the normalized Search Console verdict set for one URL.
// Error is populated instead of returning an error, matching the prober's
// soft-failure contract.
type IndexInspection struct {
	IndexStatus     *searchconsole.IndexStatusResult
	MobileUsability *searchconsole.MobileUsabilityResult
	RichResults     *searchconsole.RichResultsResult
	Error           string
}

// IndexState is the four-way classification of a URL's index status.
type IndexState string

const (
	IndexStateIndexed    IndexState = "indexed"
	IndexStateNotIndexed IndexState = "not-indexed"
	IndexStateError      IndexState = "error"
	IndexStateUnknown    IndexState = "unknown"
)

// IndexClassification pairs an index state with the most specific reason
// the inspection offered.
type IndexClassification struct {
	Status IndexState
	Reason string
}

// IndexInspector inspects one URL against the configured site property.
type IndexInspector interface {
	Inspect(ctx context.Context, url string) *IndexInspection
}

// Inspector runs index inspections through the Search Console API.
type Inspector struct {
	client searchconsole.Client
}

// NewInspector creates an Inspector. A nil client is tolerated and reported
// as a configuration error on every inspection.
func NewInspector(client searchconsole.Client) *Inspector {
	return &Inspector{client: client}
}

// Inspect fetches the index verdicts for one URL. It never returns an
// error: failures leave the verdict fields nil and set Error.
func (i *Inspector) Inspect(ctx context.Context, url string) *IndexInspection {
	insp := &IndexInspection{}

	if i.client == nil {
		insp.Error = "search console token not configured"
		return insp
	}

	raw, err := i.client.InspectURL(ctx, url)
	if err != nil {
		zap.L().Warn("audit: index inspection failed",
			zap.String("url", url),
			zap.Error(err),
		)
		insp.Error = err.Error()
		return insp
	}

	insp.IndexStatus = raw.IndexStatusResult
	insp.MobileUsability = raw.MobileUsabilityResult
	insp.RichResults = raw.RichResultsResult

	return insp
}

// ClassifyIndexStatus maps the inspection verdict to a four-way index
// state. The reason prefers coverage state over indexing state over the
// raw verdict.
func ClassifyIndexStatus(insp *IndexInspection) IndexClassification {
	if insp == nil || insp.IndexStatus == nil {
		return IndexClassification{Status: IndexStateUnknown, Reason: "no index status returned"}
	}
	st := insp.IndexStatus

	reason := st.Verdict
	if st.IndexingState != "" {
		reason = st.IndexingState
	}
	if st.CoverageState != "" {
		reason = st.CoverageState
	}

	switch st.Verdict {
	case "PASS":
		return IndexClassification{Status: IndexStateIndexed, Reason: reason}
	case "FAIL", "NEUTRAL":
		return IndexClassification{Status: IndexStateNotIndexed, Reason: reason}
	case "PARTIAL":
		return IndexClassification{Status: IndexStateError, Reason: reason}
	default:
		return IndexClassification{Status: IndexStateUnknown, Reason: reason}
	}
}
