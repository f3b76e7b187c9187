package store

import "testing"

func TestPrecedenceForMapsSourceTypes(t *testing.T) {
	cases := map[SourceType]PrecedenceLevel{
		SourceRulebook:      PrecedenceBase,
		SourceReferenceCard: PrecedenceBase,
		SourceExpansion:     PrecedenceExpansion,
		SourceFAQ:           PrecedenceErrata,
		SourceErrata:        PrecedenceErrata,
	}
	for srcType, want := range cases {
		if got := PrecedenceFor(srcType); got != want {
			t.Errorf("PrecedenceFor(%q) = %v, want %v", srcType, got, want)
		}
	}
}
