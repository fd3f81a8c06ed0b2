package sentiment

// polarity is the polarity model's adjective table, on a -1..+1 scale.
var polarity = map[string]float64{
	"good": 0.7, "great": 0.8, "excellent": 1.0, "best": 1.0, "better": 0.5, "positive": 0.23,
	"strong": 0.43, "stronger": 0.5, "solid": 0.3, "robust": 0.5, "healthy": 0.5, "impressive": 1.0,
	"bullish": 0.6, "optimistic": 0.5, "upbeat": 0.5, "profitable": 0.5, "successful": 0.75,
	"high": 0.16, "higher": 0.25, "record": 0.3, "new": 0.14, "innovative": 0.5, "happy": 0.8,
	"favorable": 0.5, "attractive": 0.6, "confident": 0.5, "stable": 0.2, "steady": 0.2,

	"bad": -0.7, "poor": -0.4, "worse": -0.4, "worst": -1.0, "terrible": -1.0, "awful": -1.0,
	"negative": -0.3, "weak": -0.375, "weaker": -0.45, "bearish": -0.6, "pessimistic": -0.5,
	"low": -0.2, "lower": -0.25, "volatile": -0.3, "risky": -0.5, "uncertain": -0.3, "disappointing": -0.6,
	"worried": -0.5, "concerned": -0.4, "difficult": -0.5, "sluggish": -0.4, "unprofitable": -0.5,
	"unstable": -0.4, "sad": -0.5, "failed": -0.5, "wrong": -0.5, "dangerous": -0.6, "costly": -0.3,
}

// negations flip the polarity of the adjectives that follow them.
var negations = map[string]bool{
	"not": true, "no": true, "never": true, "none": true, "nobody": true, "nothing": true,
	"neither": true, "nor": true, "without": true, "cannot": true, "isn't": true, "aren't": true,
	"wasn't": true, "weren't": true, "don't": true, "doesn't": true, "didn't": true, "won't": true,
	"wouldn't": true, "shouldn't": true, "couldn't": true, "hasn't": true, "haven't": true, "hadn't": true,
}

// intensifiers multiply the polarity of the next adjective.
var intensifiers = map[string]float64{
	"very": 1.3, "extremely": 1.5, "really": 1.3, "highly": 1.3, "incredibly": 1.5,
	"slightly": 0.6, "somewhat": 0.7, "fairly": 0.8, "quite": 1.1,
}
