package turn

import "fmt"

// VerseOfTheDay asks for an inspiring scripture with a short insight.
func VerseOfTheDay() string {
	return "Give me an inspiring scripture and a short insight about its meaning."
}

// ExplainVerse asks for a deeper explanation of a scripture reference.
func ExplainVerse(ref string) string {
	return fmt.Sprintf("Please explain %s in more detail, including its context and key principles.", ref)
}

// AskAboutVerse asks about a verse the user is reading.
func AskAboutVerse(book string, chapter, verse int, text string) string {
	return fmt.Sprintf("Tell me more about this verse: \"%s\" (%s %d:%d)", text, book, chapter, verse)
}
