package mapper

import (
	"fmt"

	"biblegen/internal/domain"
)

func chapter(book string, number uint32, verses map[string]string) domain.Chapter {
	ch := domain.Chapter{
		Book:     book,
		Number:   number,
		Verses:   make(map[string]domain.Verse, len(verses)),
		Metadata: domain.ChapterMetadata{VerseCount: len(verses)},
	}
	for num, text := range verses {
		ch.Verses[num] = domain.Verse{
			ID:           fmt.Sprintf("%s-%d-%s", book, number, num),
			Number:       num,
			Text:         text,
			Anchor:       "#v" + num,
			CanonicalRef: fmt.Sprintf("%s.%d.%s", book, number, num),
		}
	}
	return ch
}

func chapters(chs ...domain.Chapter) domain.VersionChapters {
	out := make(domain.VersionChapters, len(chs))
	for _, ch := range chs {
		out[ch.Key()] = ch
	}
	return out
}

func genesisKJV() domain.Chapter {
	return chapter("Genesis", 1, map[string]string{
		"1": "In the beginning God created the heaven and the earth.",
		"2": "And the earth was without form, and void; and darkness was upon the face of the deep. And the Spirit of God moved upon the face of the waters.",
		"3": "And God said, Let there be light: and there was light.",
	})
}

func genesisWEB() domain.Chapter {
	return chapter("Genesis", 1, map[string]string{
		"1": "In the beginning God created the heavens and the earth.",
		"2": "The earth was formless and empty. Darkness was on the surface of the deep. God's Spirit was hovering over the surface of the waters.",
		"3": "God said, \"Let there be light,\" and there was light.",
	})
}

func psalmsKJV() domain.Chapter {
	return chapter("Psalms", 9, map[string]string{
		"20": "Put them in fear, O LORD: that the nations may know themselves to be but men.",
		"21": "Set thou a wicked man over him: and let Satan stand at his right hand.",
	})
}

// psalmsWEB merges verses 20 and 21 into a single "20-21" entry.
func psalmsWEB() domain.Chapter {
	ch := chapter("Psalms", 9, map[string]string{
		"20":    "Put them in fear, LORD. Let the nations know that they are only men.",
		"20-21": "Set a wicked man over him. Let an adversary stand at his right hand.",
	})
	v := ch.Verses["20-21"]
	v.CanonicalRef = "Psalms.9.20"
	ch.Verses["20-21"] = v
	return ch
}

func sampleCorpus() domain.Corpus {
	return domain.Corpus{
		"kjv": chapters(genesisKJV(), psalmsKJV()),
		"web": chapters(genesisWEB(), psalmsWEB()),
	}
}
