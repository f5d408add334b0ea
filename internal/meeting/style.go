package meeting

import "strings"

// Synthesizer voices.
const (
	VoiceAlloy   = "alloy"
	VoiceVerse   = "verse"
	VoiceShimmer = "shimmer"

	DefaultVoice = VoiceAlloy
)

// Style is a named persona that shapes summary wording and the speech voice.
type Style struct {
	Name  string
	Voice string
}

// Label is the short form of the name ("Rapper" for "Rapper – Punchy rhyme...").
func (s Style) Label() string {
	if i := strings.Index(s.Name, " – "); i >= 0 {
		return s.Name[:i]
	}
	return s.Name
}

// Styles is the closed style set, in display order.
var Styles = []Style{
	{"Meeting Notes", VoiceAlloy},
	{"Rapper – Punchy rhyme or a hype bar.", VoiceVerse},
	{"Sports Commentator – Calls it like a thrilling play-by-play moment.", VoiceVerse},
	{"Movie Trailer Voice – Over-the-top and cinematic.", VoiceAlloy},
	{"News Anchor – Formal, and breaking-news style.", VoiceAlloy},
	{"Stand-Up Comedian – Twists it into a witty punchline.", VoiceShimmer},
	{"Shakespearean Bard – Flowery, old-English phrasing.", VoiceVerse},
	{"Fairy Tale Narrator – Whimsical and magical.", VoiceShimmer},
	{"Conspiracy Theorist – Paranoid and full of hidden meanings.", VoiceAlloy},
	{"Tech Support Agent – Dry and procedural.", VoiceAlloy},
	{"Pet Blogger – As if your dog or cat is gossiping about you.", VoiceShimmer},
	{"Cooking Show Host – Ingredients and steps as a recipe.", VoiceShimmer},
	{"Pirate Captain – Growly and full of “Arrr!”", VoiceVerse},
	{"Poet – Turns it into a haiku or rhyming couplet.", VoiceVerse},
	{"Gamer Streamer – Overly excited Twitch energy.", VoiceVerse},
	{"Motivational Coach – Pep talk style, big on energy.", VoiceAlloy},
	{"Sci-Fi Narrator – Futuristic and dramatic, with starship vibes.", VoiceVerse},
	{"Gossip Columnist – Sassy and dramatic, spilling “tea”.", VoiceShimmer},
}

var voiceByStyle = func() map[string]string {
	m := make(map[string]string, len(Styles))
	for _, s := range Styles {
		m[s.Name] = s.Voice
	}
	return m
}()

// VoiceForStyle returns the voice for an exact style name, or DefaultVoice.
func VoiceForStyle(style string) string {
	if v, ok := voiceByStyle[style]; ok {
		return v
	}
	return DefaultVoice
}
