package assistant

import "time"

var apologies = []string{
	"Sorry, I couldn't put together an answer just now. Please try again in a moment.",
	"Apologies, I'm having trouble reaching my data sources right now. Give it another try shortly.",
	"I ran into a problem while preparing your answer. Please ask again in a little while.",
	"Sorry about that, something went wrong on my side. Try your question again soon.",
	"I wasn't able to respond this time. Please try again, your journal data is safe.",
}

// Apology returns the fallback reply for t. The variant changes once per day.
func Apology(t time.Time) string {
	return apologies[t.YearDay()%len(apologies)]
}
