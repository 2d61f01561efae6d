// Package testutils provides fixtures and test doubles shared by package
// tests.
package testutils

import (
	"strconv"

	"github.com/ahrav/go-aipi/internal/domain"
)

// SampleCSV is a small, complete dataset with three providers covering
// every pillar. Its scores are:
//
//	provider  evidence  known_only  coverage
//	beta      0.65      0.65        1
//	alpha     0.5       0.625       0.6
//	gamma     0.25      0.25        0.5
const SampleCSV = `provider_id,provider_name,indicator_id,indicator_name,pillar,indicator_value,norm_evidence,norm_known,evidence_url
alpha,Alpha Labs,pg1,Citizen panels,Participatory governance,yes,1,1,https://alpha.example/panels
alpha,Alpha Labs,pg2,Public comment,Participatory governance,unknown,0,,
alpha,Alpha Labs,id1,Diverse board,Inclusivity & diversity,partial,0.5,0.5,
alpha,Alpha Labs,tr1,Model cards,Transparency,yes,1,1,"https://alpha.example/cards; https://alpha.example/cards/v2"
alpha,Alpha Labs,ac1,Incident reporting,Accountability,unknown,0,,
beta,Beta AI,pg1,Citizen panels,Participatory governance,no,0,0,
beta,Beta AI,id1,Diverse board,Inclusivity & diversity,yes,1,1,
beta,Beta AI,tr1,Model cards,Transparency,0.6,0.6,0.6,
beta,Beta AI,ac1,Incident reporting,Accountability,yes,1,1,https://beta.example/incidents
gamma,Gamma Corp,pg1,Citizen panels,Participatory governance,unknown,0,,
gamma,Gamma Corp,id1,Diverse board,Inclusivity & diversity,unknown,0,,
gamma,Gamma Corp,tr1,Model cards,Transparency,yes,1,1,
gamma,Gamma Corp,ac1,Incident reporting,Accountability,no,0,0,
`

// Provider IDs in SampleCSV, in evidence ranking order.
const (
	SampleTop    = "beta"
	SampleMiddle = "alpha"
	SampleBottom = "gamma"
)

// Row builds an indicator row. A negative known value leaves the row
// unknown.
func Row(providerID, indicatorID string, pillar domain.Pillar, evidence, known float64) domain.IndicatorRow {
	r := domain.IndicatorRow{
		ProviderID:    providerID,
		ProviderName:  providerID,
		IndicatorID:   indicatorID,
		IndicatorName: indicatorID,
		Pillar:        pillar,
		NormEvidence:  domain.Float(evidence),
		ValueRaw:      "unknown",
	}
	if known >= 0 {
		r.NormKnown = domain.Float(known)
		r.ValueRaw = strconv.FormatFloat(known, 'g', -1, 64)
	}
	return r
}
