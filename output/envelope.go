package output

import (
	"encoding/json"
	"io"

	"github.com/harvest-ai/nni-research-cli/internal/ml"
)

// PredictionEnvelope is the response shape of a single field prediction. Pred holds the NNI,
// non-finite values are encoded as null.
type PredictionEnvelope struct {
	Lon  []interface{} `json:"lon"`
	Lat  []interface{} `json:"lat"`
	Pred []interface{} `json:"pred"`
	Meta ml.Metadata   `json:"meta"`
}

func NewEnvelope(result *ml.InferenceResult) PredictionEnvelope {
	env := PredictionEnvelope{
		Lon:  make([]interface{}, len(result.LonLatPred)),
		Lat:  make([]interface{}, len(result.LonLatPred)),
		Pred: make([]interface{}, len(result.Predictions)),
		Meta: result.Meta,
	}
	for i, row := range result.LonLatPred {
		env.Lon[i] = finite(row[0])
		env.Lat[i] = finite(row[1])
	}
	for i, v := range result.Predictions {
		env.Pred[i] = finite(v)
	}
	return env
}

func WriteEnvelope(w io.Writer, result *ml.InferenceResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewEnvelope(result))
}
