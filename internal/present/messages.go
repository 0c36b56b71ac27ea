package present

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	countKey     = "%d results for \"%s\""
	noResultsKey = "No results found for \"%s\""
)

func init() {
	if err := message.Set(language.English, countKey,
		plural.Selectf(1, "%d",
			plural.One, "%d result for \"%s\"",
			plural.Other, "%d results for \"%s\"",
		),
	); err != nil {
		panic(err)
	}
	if err := message.SetString(language.English, noResultsKey, "No results found for \"%s\""); err != nil {
		panic(err)
	}
}

var printer = message.NewPrinter(language.English)

func countMessage(n int, query string) string {
	return printer.Sprintf(countKey, n, query)
}

func noResultsMessage(query string) string {
	return printer.Sprintf(noResultsKey, query)
}
