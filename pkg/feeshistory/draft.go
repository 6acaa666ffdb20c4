package feeshistory

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/elektroapp/elektrodash/pkg/types"
)

// Values holds the editable fee values of a draft as typed by the user.
type Values struct {
	DPH                          string `json:"dph"`
	KomoditaSluzba               string `json:"komodita_sluzba"`
	OZE                          string `json:"oze"`
	Dan                          string `json:"dan"`
	SystemoveSluzby              string `json:"systemove_sluzby"`
	DistribuceNT                 string `json:"distribuce_nt"`
	DistribuceVT                 string `json:"distribuce_vt"`
	StalyPlat                    string `json:"staly_plat"`
	ProvozNesitoveInfrastruktury string `json:"provoz_nesitove_infrastruktury"`
	Jistic                       string `json:"jistic"`
	KoeficientSnizeniCeny        string `json:"koeficient_snizeni_ceny"`
}

// Draft is one fee period while it is being edited. Stored entries use their
// effective_from as ID, added ones get a "new-" prefixed ID.
type Draft struct {
	ID            string `json:"id"`
	EffectiveFrom string `json:"effective_from"`
	EffectiveTo   string `json:"effective_to"`
	Values        Values `json:"values"`
	IsNew         bool   `json:"is_new"`
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func draftFromEntry(e types.FeeScheduleEntry) Draft {
	s := e.Snapshot
	d := Draft{
		ID:            e.EffectiveFrom,
		EffectiveFrom: e.EffectiveFrom,
		Values: Values{
			DPH:                          formatNumber(s.DPHPercent),
			KomoditaSluzba:               formatNumber(s.KWhFees.Komodita),
			OZE:                          formatNumber(s.KWhFees.OZE),
			Dan:                          formatNumber(s.KWhFees.Dan),
			SystemoveSluzby:              formatNumber(s.KWhFees.SystemoveSluzby),
			DistribuceNT:                 formatNumber(s.KWhFees.Distribuce.NT),
			DistribuceVT:                 formatNumber(s.KWhFees.Distribuce.VT),
			StalyPlat:                    formatNumber(s.Fixed.Daily.StalyPlat),
			ProvozNesitoveInfrastruktury: formatNumber(s.Fixed.Monthly.ProvozNesitoveInfrastruktury),
			Jistic:                       formatNumber(s.Fixed.Monthly.Jistic),
			KoeficientSnizeniCeny:        formatNumber(s.Prodej.KoeficientSnizeniCeny),
		},
	}
	if e.EffectiveTo != nil {
		d.EffectiveTo = *e.EffectiveTo
	}
	return d
}

// DefaultsFromConfig returns the values a newly added period starts with.
func DefaultsFromConfig(cfg types.Config) Values {
	return Values{
		DPH:                          formatNumber(cfg.DPH),
		KomoditaSluzba:               formatNumber(cfg.Poplatky.KomoditaSluzba),
		OZE:                          formatNumber(cfg.Poplatky.OZE),
		Dan:                          formatNumber(cfg.Poplatky.Dan),
		SystemoveSluzby:              formatNumber(cfg.Poplatky.SystemoveSluzby),
		DistribuceNT:                 formatNumber(cfg.Poplatky.Distribuce.NT),
		DistribuceVT:                 formatNumber(cfg.Poplatky.Distribuce.VT),
		StalyPlat:                    formatNumber(cfg.Fixni.Denni.StalyPlat),
		ProvozNesitoveInfrastruktury: formatNumber(cfg.Fixni.Mesicni.ProvozNesitoveInfrastruktury),
		Jistic:                       formatNumber(cfg.Fixni.Mesicni.Jistic),
		KoeficientSnizeniCeny:        formatNumber(cfg.Prodej.KoeficientSnizeniCeny),
	}
}

var leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ToNumber converts user input to a float. The first comma is treated as
// the decimal separator, trailing garbage is ignored and anything that does
// not start with a number becomes 0.
func ToNumber(s string) float64 {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	m := leadingFloat.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

func (d Draft) payload() types.FeeScheduleInput {
	v := d.Values
	in := types.FeeScheduleInput{
		EffectiveFrom: d.EffectiveFrom,
		EffectiveTo:   d.EffectiveTo,
		Snapshot: types.FeeSnapshotInput{
			DPH: ToNumber(v.DPH),
			Poplatky: types.Poplatky{
				KomoditaSluzba:  ToNumber(v.KomoditaSluzba),
				OZE:             ToNumber(v.OZE),
				Dan:             ToNumber(v.Dan),
				SystemoveSluzby: ToNumber(v.SystemoveSluzby),
				Distribuce: types.Distribuce{
					NT: ToNumber(v.DistribuceNT),
					VT: ToNumber(v.DistribuceVT),
				},
			},
			Prodej: types.Prodej{KoeficientSnizeniCeny: ToNumber(v.KoeficientSnizeniCeny)},
		},
	}
	in.Snapshot.Fixni.Denni.StalyPlat = ToNumber(v.StalyPlat)
	in.Snapshot.Fixni.Mesicni.ProvozNesitoveInfrastruktury = ToNumber(v.ProvozNesitoveInfrastruktury)
	in.Snapshot.Fixni.Mesicni.Jistic = ToNumber(v.Jistic)
	return in
}

// BuildPayload converts drafts into the collection submitted to the backend.
// Drafts without an effective_from are skipped.
func BuildPayload(drafts []Draft) []types.FeeScheduleInput {
	out := make([]types.FeeScheduleInput, 0, len(drafts))
	for _, d := range drafts {
		if d.EffectiveFrom == "" {
			continue
		}
		out = append(out, d.payload())
	}
	return out
}
