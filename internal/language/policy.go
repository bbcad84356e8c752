// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_language

import (
	"strings"
	"sync/atomic"
	"unicode"
)

// Supported conversation languages, BCP-47 style tags.
const (
	Hindi   = "hi-IN"
	English = "en-IN"
	Tamil   = "ta-IN"
	Bengali = "bn-IN"
	Telugu  = "te-IN"
	Marathi = "mr-IN"
)

// DefaultLanguage is the starting language for a new call.
const DefaultLanguage = Hindi

// speakers maps language tags to TTS voice names.
var speakers = map[string]string{
	Hindi:   "meera",
	English: "meera",
	Tamil:   "meera",
	Bengali: "meera",
	Telugu:  "meera",
	Marathi: "meera",
}

// IsSupported reports whether tag is a known conversation language.
func IsSupported(tag string) bool {
	_, ok := speakers[tag]
	return ok
}

// Normalize maps loose provider tags ("hi", "hi-IN", "HI-in") onto the
// canonical tag, defaulting to Hindi for unknown input.
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return DefaultLanguage
	}
	lower := strings.ToLower(tag)
	for t := range speakers {
		if lower == strings.ToLower(t) || lower == strings.ToLower(t[:2]) {
			return t
		}
	}
	return DefaultLanguage
}

// SpeakerFor returns the TTS voice for a language tag.
func SpeakerFor(tag string) string {
	if s, ok := speakers[tag]; ok {
		return s
	}
	return "meera"
}

// switchPhrases maps lowercase trigger phrases to target languages. The
// caller can ask for a language switch in either the current language or
// English.
var switchPhrases = map[string]string{
	"speak in english":   English,
	"talk in english":    English,
	"switch to english":  English,
	"english me baat":    English,
	"angrezi me baat":    English,
	"speak in hindi":     Hindi,
	"talk in hindi":      Hindi,
	"switch to hindi":    Hindi,
	"hindi me baat":      Hindi,
	"hindi mein baat":    Hindi,
	"speak in tamil":     Tamil,
	"switch to tamil":    Tamil,
	"tamil me baat":      Tamil,
	"speak in bengali":   Bengali,
	"switch to bengali":  Bengali,
	"bangla me baat":     Bengali,
	"bengali me baat":    Bengali,
	"speak in telugu":    Telugu,
	"switch to telugu":   Telugu,
	"speak in marathi":   Marathi,
	"switch to marathi":  Marathi,
	"marathi me baat":    Marathi,
	"marathi mein baat":  Marathi,
	"speak in hinglish":  Hindi,
	"switch to hinglish": Hindi,
}

// DetectSwitchRequest scans a transcript for an explicit language-switch
// phrase. Returns the target tag and true when one is found.
func DetectSwitchRequest(text string) (string, bool) {
	lower := strings.ToLower(text)
	for phrase, tag := range switchPhrases {
		if strings.Contains(lower, phrase) {
			return tag, true
		}
	}
	return "", false
}

// englishMarkers are common words that tip a Latin-script transcript
// toward English rather than romanized Hindi.
var englishMarkers = map[string]struct{}{
	"the": {}, "is": {}, "are": {}, "what": {}, "how": {}, "please": {},
	"you": {}, "your": {}, "can": {}, "want": {}, "need": {}, "hello": {},
	"thanks": {}, "thank": {}, "yes": {}, "no": {}, "okay": {},
}

// DetectFromText guesses the language of a transcript by script, with a
// marker-word tiebreak for Latin text. Empty or ambiguous text keeps the
// fallback language.
func DetectFromText(text, fallback string) string {
	var devanagari, tamil, bengali, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Devanagari, r):
			devanagari++
		case unicode.Is(unicode.Tamil, r):
			tamil++
		case unicode.Is(unicode.Bengali, r):
			bengali++
		case unicode.IsLetter(r) && r < 128:
			latin++
		}
	}
	switch {
	case devanagari > 0 && devanagari >= tamil && devanagari >= bengali:
		return Hindi
	case tamil > 0 && tamil >= bengali:
		return Tamil
	case bengali > 0:
		return Bengali
	}
	if latin > 0 {
		for _, word := range strings.Fields(strings.ToLower(text)) {
			if _, ok := englishMarkers[strings.Trim(word, ".,!?")]; ok {
				return English
			}
		}
		// romanized Indic text stays in the current language
	}
	if IsSupported(fallback) {
		return fallback
	}
	return DefaultLanguage
}

var greetings = map[string]string{
	Hindi:   "नमस्ते! मैं आपकी सहायता के लिए यहाँ हूँ। आप मुझसे कुछ भी पूछ सकते हैं।",
	English: "Hello! I am here to help you. You can ask me anything.",
	Tamil:   "வணக்கம்! நான் உங்களுக்கு உதவ இங்கே இருக்கிறேன். நீங்கள் என்னிடம் எதையும் கேட்கலாம்.",
	Bengali: "নমস্কার! আমি আপনাকে সাহায্য করতে এখানে আছি। আপনি আমাকে যেকোনো কিছু জিজ্ঞাসা করতে পারেন।",
	Telugu:  "నమస్తే! నేను మీకు సహాయం చేయడానికి ఇక్కడ ఉన్నాను.",
	Marathi: "नमस्कार! मी तुमच्या मदतीसाठी येथे आहे.",
}

var farewells = map[string]string{
	Hindi:   "धन्यवाद! आपका दिन शुभ हो। अलविदा!",
	English: "Thank you for calling. Have a great day. Goodbye!",
	Tamil:   "நன்றி! உங்கள் நாள் இனிதாக அமையட்டும். வணக்கம்!",
	Bengali: "ধন্যবাদ! আপনার দিন শুভ হোক। বিদায়!",
	Telugu:  "ధన్యవాదాలు! మీ రోజు శుభంగా ఉండాలి.",
	Marathi: "धन्यवाद! तुमचा दिवस चांगला जावो.",
}

var silencePrompts = map[string][]string{
	Hindi: {
		"क्या आप वहाँ हैं? मैं आपकी सहायता के लिए यहाँ हूँ।",
		"अगर आप कुछ नहीं कहेंगे तो मैं कॉल समाप्त कर दूँगी।",
	},
	English: {
		"Are you still there? I am here to help you.",
		"If I don't hear from you, I will end the call.",
	},
	Tamil: {
		"நீங்கள் இருக்கிறீர்களா? நான் உதவ இங்கே இருக்கிறேன்.",
		"நீங்கள் பேசவில்லை என்றால் அழைப்பை முடித்து விடுவேன்.",
	},
	Bengali: {
		"আপনি কি আছেন? আমি সাহায্য করতে এখানে আছি।",
		"আপনি কিছু না বললে আমি কলটি শেষ করে দেব।",
	},
	Telugu: {
		"మీరు ఉన్నారా? నేను సహాయం చేయడానికి ఇక్కడ ఉన్నాను.",
		"మీరు ఏమీ చెప్పకపోతే కాల్ ముగిస్తాను.",
	},
	Marathi: {
		"तुम्ही आहात का? मी मदतीसाठी येथे आहे.",
		"तुम्ही काही बोलला नाहीत तर मी कॉल संपवेन.",
	},
}

var switchConfirmations = map[string]string{
	Hindi:   "ठीक है, अब मैं हिंदी में बात करूँगी।",
	English: "Okay, I will speak in English now.",
	Tamil:   "சரி, இப்போது நான் தமிழில் பேசுகிறேன்.",
	Bengali: "ঠিক আছে, এখন আমি বাংলায় কথা বলব।",
	Telugu:  "సరే, ఇప్పుడు నేను తెలుగులో మాట్లాడతాను.",
	Marathi: "ठीक आहे, आता मी मराठीत बोलेन.",
}

var fallbackReplies = map[string][]string{
	Hindi: {
		"क्षमा करें, मुझे आपका अनुरोध समझने में समस्या हो रही है। कृपया फिर से कोशिश करें।",
		"माफ़ कीजिए, मैं अभी आपकी बात ठीक से समझ नहीं पाई। कृपया दोबारा कहें।",
		"क्षमा करें, कुछ गड़बड़ हो गई। क्या आप अपनी बात फिर से कह सकते हैं?",
	},
	English: {
		"I apologize, but I'm having trouble processing your request right now.",
		"Sorry, I didn't quite catch that. Could you say it again?",
		"I'm sorry, something went wrong on my end. Please try once more.",
	},
	Tamil: {
		"மன்னிக்கவும், உங்கள் கோரிக்கையை செயல்படுத்துவதில் சிக்கல் உள்ளது.",
		"மன்னிக்கவும், அது சரியாகப் புரியவில்லை. மீண்டும் சொல்ல முடியுமா?",
	},
	Bengali: {
		"দুঃখিত, আপনার অনুরোধ প্রক্রিয়া করতে সমস্যা হচ্ছে।",
		"দুঃখিত, কথাটা ঠিক বুঝতে পারিনি। আবার বলবেন কি?",
	},
	Telugu: {
		"క్షమించండి, మీ అభ్యర్థనను ప్రాసెస్ చేయడంలో సమస్య ఉంది.",
		"క్షమించండి, అది సరిగా అర్థం కాలేదు. మళ్ళీ చెప్పగలరా?",
	},
	Marathi: {
		"क्षमस्व, तुमची विनंती प्रक्रिया करण्यात अडचण येत आहे.",
		"माफ करा, ते नीट समजले नाही. पुन्हा सांगाल का?",
	},
}

var fallbackSeq atomic.Uint64

func pick(m map[string]string, tag string) string {
	if s, ok := m[tag]; ok {
		return s
	}
	return m[DefaultLanguage]
}

// GreetingFor returns the opening line played after the stream starts.
func GreetingFor(tag string) string {
	return pick(greetings, tag)
}

// FarewellFor returns the goodbye line played before hangup.
func FarewellFor(tag string) string {
	return pick(farewells, tag)
}

// SilencePrompt returns the nth silence warning, clamped to the last one.
func SilencePrompt(tag string, idx int) string {
	prompts, ok := silencePrompts[tag]
	if !ok {
		prompts = silencePrompts[DefaultLanguage]
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(prompts) {
		idx = len(prompts) - 1
	}
	return prompts[idx]
}

// SwitchConfirmation returns the acknowledgement spoken in the NEW
// language after a switch request.
func SwitchConfirmation(tag string) string {
	return pick(switchConfirmations, tag)
}

// FallbackReplies returns the canned-answer pool for a language.
func FallbackReplies(tag string) []string {
	if pool, ok := fallbackReplies[tag]; ok {
		return pool
	}
	return fallbackReplies[DefaultLanguage]
}

// FallbackReply rotates through the canned answers used when the
// dialogue provider fails.
func FallbackReply(tag string) string {
	pool := FallbackReplies(tag)
	return pool[int(fallbackSeq.Add(1)-1)%len(pool)]
}
