package wine

// FeatureCount is the number of attributes in a Sample and the length of
// every vector produced by FeatureVector.
const FeatureCount = 13

type Sample struct {
	Alcohol             float64 `json:"alcohol"`
	MalicAcid           float64 `json:"malic_acid"`
	Ash                 float64 `json:"ash"`
	AlcalinityOfAsh     float64 `json:"alcalinity_of_ash"`
	Magnesium           float64 `json:"magnesium"`
	TotalPhenols        float64 `json:"total_phenols"`
	Flavanoids          float64 `json:"flavanoids"`
	NonflavanoidPhenols float64 `json:"nonflavanoid_phenols"`
	Proanthocyanins     float64 `json:"proanthocyanins"`
	ColorIntensity      float64 `json:"color_intensity"`
	Hue                 float64 `json:"hue"`
	OD280_OD315         float64 `json:"od280_od315_of_diluted_wines"`
	Proline             float64 `json:"proline"`
}

// FeatureNames returns the attribute names in the order the classifier was
// trained on. The model artifact stores the same list and the loader refuses
// artifacts that disagree, so vector order can never drift silently.
func FeatureNames() []string {
	return []string{
		"alcohol",
		"malic_acid",
		"ash",
		"alcalinity_of_ash",
		"magnesium",
		"total_phenols",
		"flavanoids",
		"nonflavanoid_phenols",
		"proanthocyanins",
		"color_intensity",
		"hue",
		"od280_od315_of_diluted_wines",
		"proline",
	}
}

// FeatureVector maps a sample to its numeric vector, field order matching
// FeatureNames. No scaling happens here; standardization belongs to the
// model artifact.
func FeatureVector(s Sample) []float64 {
	return []float64{
		s.Alcohol,
		s.MalicAcid,
		s.Ash,
		s.AlcalinityOfAsh,
		s.Magnesium,
		s.TotalPhenols,
		s.Flavanoids,
		s.NonflavanoidPhenols,
		s.Proanthocyanins,
		s.ColorIntensity,
		s.Hue,
		s.OD280_OD315,
		s.Proline,
	}
}
