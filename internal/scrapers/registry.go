package scrapers

import (
	"github.com/rs/zerolog"

	"github.com/cybersmurf/realestate-aggregator/internal/browser"
)

// jihomoravskyRegionID is sreality.cz's own numeric id for Jihomoravský
// kraj, the region containing the Znojmo district this deployment targets.
const jihomoravskyRegionID = 14

// All constructs every adapter the runner fans out across. Order is
// insertion order only; the runner itself decides concurrency. pool may be
// nil, in which case the one adapter that can use it (remax) degrades to
// HTTP-only and simply skips client-side-rendered detail pages.
func All(sink Sink, pool *browser.Pool, log zerolog.Logger) []Adapter {
	return []Adapter{
		NewSreality(sink, log, jihomoravskyRegionID),
		NewIdnesReality(sink, log),
		NewReas(sink, log),
		NewCentury21(sink, log),
		NewHvReality(sink, log),
		NewRemax(sink, log, pool),
		NewProdejmeto(sink, log),
		NewMmReality(sink, log),
		NewDeluxReality(sink, log),
		NewLexamo(sink, log),
		NewNemovitostiZnojmo(sink, log),
		NewPremiaReality(sink, log),
		NewZnojmoReality(sink, log),
	}
}

// ByCode builds a source-code -> Adapter lookup, used by the job runner to
// restrict a run to a requested subset of sources.
func ByCode(adapters []Adapter) map[string]Adapter {
	out := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		out[a.SourceCode()] = a
	}
	return out
}
