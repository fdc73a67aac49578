package classifier

import (
	"strings"

	"github.com/rajasatyajit/ReliefHub/internal/models"
	"github.com/rajasatyajit/ReliefHub/pkg/utils"
)

// Disaster types
const (
	TypeEarthquake = "earthquake"
	TypeFlood      = "flood"
	TypeHurricane  = "hurricane"
	TypeWildfire   = "wildfire"
	TypeTornado    = "tornado"
	TypeTsunami    = "tsunami"
	TypeLandslide  = "landslide"
	TypeVolcano    = "volcano"
	TypeDrought    = "drought"
	TypeBlizzard   = "blizzard"
	TypeUnknown    = "unknown"
)

// Severity levels
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

type rule struct {
	label    string
	keywords []string
}

// Checked in order; the first rule with a keyword in the text wins, so a
// "snowstorm" is a hurricane because "storm" is listed there first.
var typeRules = []rule{
	{TypeEarthquake, []string{"earthquake", "tremor", "seismic", "quake"}},
	{TypeFlood, []string{"flood", "flooding", "inundation", "deluge"}},
	{TypeHurricane, []string{"hurricane", "cyclone", "typhoon", "storm"}},
	{TypeWildfire, []string{"wildfire", "fire", "blaze", "burning"}},
	{TypeTornado, []string{"tornado", "twister"}},
	{TypeTsunami, []string{"tsunami", "tidal wave"}},
	{TypeLandslide, []string{"landslide", "mudslide"}},
	{TypeVolcano, []string{"volcano", "volcanic", "eruption"}},
	{TypeDrought, []string{"drought", "dry", "water shortage"}},
	{TypeBlizzard, []string{"blizzard", "snowstorm", "winter storm"}},
}

var severityRules = []rule{
	{SeverityCritical, []string{"death", "dead", "killed", "catastrophic", "devastating", "destroyed", "massive", "severe", "emergency"}},
	{SeverityHigh, []string{"major", "serious", "significant", "heavy", "damage"}},
	{SeverityMedium, []string{"moderate", "warning", "alert"}},
}

// Classifier labels disaster reports by type and severity
type Classifier struct{}

// New creates a new classifier instance
func New() *Classifier {
	return &Classifier{}
}

// Classify derives the disaster type and severity of a report
func (c *Classifier) Classify(report models.DisasterReport) models.Classification {
	return models.Classification{
		DisasterType: ClassifyType(report.Text),
		Severity:     AssessSeverity(report.Text),
	}
}

// ClassifyType returns the first disaster type whose keywords appear in text,
// or "unknown".
func ClassifyType(text string) string {
	return firstMatch(typeRules, strings.ToLower(text), TypeUnknown)
}

// AssessSeverity returns critical, high, medium or low
func AssessSeverity(text string) string {
	return firstMatch(severityRules, strings.ToLower(text), SeverityLow)
}

func firstMatch(rules []rule, text, fallback string) string {
	for _, r := range rules {
		if utils.ContainsAny(text, r.keywords) {
			return r.label
		}
	}
	return fallback
}
