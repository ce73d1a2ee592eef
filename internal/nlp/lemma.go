package nlp

import "strings"

// Verbs that appear in requirements prose and must lemmatize cleanly.
// The lemmatizer only accepts a suffix-stripped candidate when it lands
// in this vocabulary, which keeps the rules from mangling ordinary nouns
// and rare verbs.
var verbVocab = map[string]bool{
	"accept": true, "access": true, "add": true, "allow": true,
	"analyze": true, "approve": true, "assign": true, "authenticate": true,
	"authorize": true, "book": true, "browse": true, "buy": true,
	"cancel": true, "comply": true, "configure": true, "contain": true,
	"create": true, "delete": true, "deliver": true, "deploy": true,
	"display": true, "download": true, "edit": true, "enable": true,
	"encrypt": true, "export": true, "filter": true, "generate": true,
	"handle": true, "import": true, "integrate": true, "list": true,
	"log": true, "login": true, "manage": true, "match": true,
	"monitor": true, "notify": true, "order": true, "pay": true,
	"process": true, "provide": true, "publish": true, "rate": true,
	"receive": true, "recommend": true, "register": true, "remove": true,
	"report": true, "request": true, "require": true, "respond": true,
	"retrieve": true, "review": true, "run": true, "scale": true,
	"schedule": true, "search": true, "select": true, "sell": true,
	"send": true, "share": true, "ship": true, "store": true,
	"stream": true, "submit": true, "support": true, "sync": true,
	"track": true, "update": true, "upload": true, "use": true,
	"validate": true, "verify": true, "view": true,
}

var irregularLemmas = map[string]string{
	"is": "be", "are": "be", "was": "be", "were": "be", "been": "be", "being": "be",
	"has": "have", "had": "have", "having": "have",
	"does": "do", "did": "do", "done": "do", "doing": "do",
	"sent": "send", "built": "build", "made": "make", "bought": "buy",
	"sold": "sell", "ran": "run", "met": "meet", "kept": "keep",
	"paid": "pay", "held": "hold", "took": "take", "taken": "take",
	"gave": "give", "given": "give", "chose": "choose", "chosen": "choose",
}

// lemma reduces a token to its base form. Verbs go through suffix rules
// validated against the verb vocabulary; plural common nouns drop a
// single trailing s. Everything else is returned lowercased.
func lemma(text, tag string) string {
	low := strings.ToLower(text)
	switch tag {
	case Verb:
		return verbLemma(low)
	case Noun:
		if strings.HasSuffix(low, "ies") && len(low) > 3 {
			return low[:len(low)-3] + "y"
		}
		if strings.HasSuffix(low, "s") && !strings.HasSuffix(low, "ss") && len(low) > 1 {
			return low[:len(low)-1]
		}
	}
	return low
}

func verbLemma(low string) string {
	if base, ok := irregularLemmas[low]; ok {
		return base
	}
	for _, cand := range suffixCandidates(low) {
		if verbVocab[cand] {
			return cand
		}
	}
	return low
}

// suffixCandidates proposes base forms for an inflected verb, in order
// of preference: undo -ies/-es/-s, then -ed/-ing with e-restoration and
// consonant undoubling.
func suffixCandidates(low string) []string {
	var cands []string
	add := func(c string) {
		if c != "" {
			cands = append(cands, c)
		}
	}
	if strings.HasSuffix(low, "ies") && len(low) > 3 {
		add(low[:len(low)-3] + "y")
	}
	if strings.HasSuffix(low, "es") && len(low) > 2 {
		add(low[:len(low)-2])
	}
	if strings.HasSuffix(low, "s") && len(low) > 1 {
		add(low[:len(low)-1])
	}
	for _, suf := range []string{"ed", "ing"} {
		if !strings.HasSuffix(low, suf) || len(low) <= len(suf)+1 {
			continue
		}
		stem := low[:len(low)-len(suf)]
		add(stem)
		add(stem + "e")
		if n := len(stem); n >= 2 && stem[n-1] == stem[n-2] {
			add(stem[:n-1])
		}
	}
	return cands
}
