// invitehound-vet classifies candidate tokens from argv or stdin. Handy for
// checking why a code was rejected and for tuning the blacklist
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"invitehound/internal/core/classify"
	"invitehound/internal/core/extract"
	"invitehound/internal/core/normalize"
)

func main() {
	fExtract := flag.Bool("extract", false, "treat inputs as free text and run the extractor first")
	flag.Parse()

	norm := normalize.New()

	inputs := flag.Args()
	if len(inputs) == 0 {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			inputs = append(inputs, sc.Text())
		}
		if err := sc.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "stdin read failed: %v\n", err)
			os.Exit(1)
		}
	}

	anyValid := false
	for _, in := range inputs {
		tokens := []string{in}
		if *fExtract {
			tokens = extract.Tokens(norm.Normalize(in))
		}
		for _, tok := range tokens {
			res := classify.Classify(tok)
			if res.Valid {
				anyValid = true
				fmt.Printf("%s\tvalid\n", classify.Normalize(tok))
			} else {
				fmt.Printf("%s\trejected\t%s\n", classify.Normalize(tok), res.Reason)
			}
		}
	}

	if !anyValid {
		os.Exit(1)
	}
}
