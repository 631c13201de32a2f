package voice

// JakeVoiceID is the provider voice used when nothing else is configured.
const JakeVoiceID = "pNInz6obpgDQGcFmaJgB"

// BuiltinPresets returns the preset table shipped with the application.
func BuiltinPresets() []Preset {
	return []Preset{
		{ID: "jake", VoiceID: JakeVoiceID, Name: "Jake", Description: "Deep, calm American male", SimilarityBoost: 0.75, Style: 0, SpeakerBoost: true},
		{ID: "rachel", VoiceID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Description: "Warm American female narrator", SimilarityBoost: 0.75, Style: 0, SpeakerBoost: true},
		{ID: "bella", VoiceID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella", Description: "Soft American female", SimilarityBoost: 0.8, Style: 0.1, SpeakerBoost: true},
		{ID: "antoni", VoiceID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Description: "Well-rounded American male", SimilarityBoost: 0.75, Style: 0, SpeakerBoost: true},
		{ID: "elli", VoiceID: "MF3mGyEYCl7XYWbV9V6O", Name: "Elli", Description: "Young, bright American female", SimilarityBoost: 0.7, Style: 0.2, SpeakerBoost: true},
		{ID: "josh", VoiceID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh", Description: "Young American male", SimilarityBoost: 0.75, Style: 0, SpeakerBoost: true},
		{ID: "domi", VoiceID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi", Description: "Strong, confident American female", SimilarityBoost: 0.75, Style: 0.15, SpeakerBoost: false},
		{ID: "sam", VoiceID: "yoZ06aMxZJJ28mfd3POQ", Name: "Sam", Description: "Raspy American male", SimilarityBoost: 0.7, Style: 0, SpeakerBoost: true},
	}
}
