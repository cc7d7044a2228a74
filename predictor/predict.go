package predictor

import (
	"soupcast/logger"
	"soupcast/ml"
)

const (
	// TopN is how many soups a prediction ranks.
	TopN = 3
	// SecondaryThreshold hides alternatives the model barely considers.
	SecondaryThreshold = 0.05

	coldBelow = 15.0
	hotAbove  = 28.0
)

const (
	ReasonWeekend = "a weekend leaves time for a slow-simmered soup"
	ReasonGloomy  = "overcast or rainy weather calls for a warming soup"
	ReasonCold    = "a cold day calls for something warming"
	ReasonHot     = "hot weather suits a light, cooling soup"
)

type Candidate struct {
	Rank        int
	Class       int
	Soup        string
	Probability float64
}

type Prediction struct {
	Inputs     ml.RawInputs
	Candidates []Candidate
	// Probabilities holds one entry per vocabulary class.
	Probabilities []float64
	Reasons       []string
}

func (p *Prediction) Top() Candidate {
	return p.Candidates[0]
}

// Secondary returns the ranked alternatives likely enough to mention.
func (p *Prediction) Secondary() []Candidate {
	out := make([]Candidate, 0, len(p.Candidates))
	for _, c := range p.Candidates[1:] {
		if c.Probability > SecondaryThreshold {
			out = append(out, c)
		}
	}
	return out
}

// Predict ranks the soups for one day. Ties keep vocabulary order.
func Predict(model *ml.TrainedModel, in ml.RawInputs) (*Prediction, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if _, ok := ml.WeatherCode(in.Weather); !ok && in.Weather != "" {
		logger.Debugf("unrecognised weather %q, using code %d", in.Weather, ml.DefaultWeatherCode)
	}
	logUnknownIngredients(in.Ingredients, model.Schema)

	probs, err := model.Probabilities(ml.Encode(in, model.Schema))
	if err != nil {
		return nil, err
	}
	ranked := ml.TopK(probs, TopN)
	candidates := make([]Candidate, len(ranked))
	for i, rc := range ranked {
		soup, err := model.Labels.Decode(rc.Class)
		if err != nil {
			return nil, err
		}
		candidates[i] = Candidate{Rank: i + 1, Class: rc.Class, Soup: soup, Probability: rc.Probability}
	}
	return &Prediction{
		Inputs:        in,
		Candidates:    candidates,
		Probabilities: probs,
		Reasons:       Reasons(in),
	}, nil
}

// Reasons lists every rule the day's conditions trigger.
func Reasons(in ml.RawInputs) []string {
	reasons := make([]string, 0, 3)
	if in.IsWeekend() {
		reasons = append(reasons, ReasonWeekend)
	}
	if in.WeatherCode() <= 1 {
		reasons = append(reasons, ReasonGloomy)
	}
	if in.Temperature < coldBelow {
		reasons = append(reasons, ReasonCold)
	} else if in.Temperature > hotAbove {
		reasons = append(reasons, ReasonHot)
	}
	return reasons
}

func logUnknownIngredients(pantry []string, schema ml.FeatureSchema) {
	known := make(map[string]struct{}, schema.Len())
	for _, name := range schema.Ingredients() {
		known[name] = struct{}{}
	}
	for _, item := range pantry {
		if _, ok := known[item]; !ok {
			logger.Debugf("ingredient %q never appears in history, ignored", item)
		}
	}
}
