package gateway

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/muniops/internal/model"
	"github.com/sells-group/muniops/internal/store"
)

// Codes set by the gateway on DataError.
const (
	CodeSampleData = "sample_data"
	CodeDecode     = "decode_error"
	CodeCanceled   = "canceled"
)

// upgradeTier is the lowest tier that unlocks live data.
const upgradeTier = model.TierStarter

func title(s string) string {
	return cases.Title(language.English).String(s)
}

// BlockedMessage is the upgrade prompt for a write attempted on sample data.
func BlockedMessage(e model.Entity, op model.Operation) string {
	return fmt.Sprintf("This is sample data. Upgrade to the %s plan to %s %s.",
		title(string(upgradeTier)), op.Verb(), e.Noun())
}

func blockedError(e model.Entity, op model.Operation) *store.DataError {
	return store.NewDataError(
		BlockedMessage(e, op),
		CodeSampleData,
		fmt.Sprintf("%s sample data is read-only on the %s plan", title(e.Noun()), model.TierFree),
	)
}
