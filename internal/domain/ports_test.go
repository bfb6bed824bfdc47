package domain_test

import (
	"testing"

	"nanjing_go/internal/domain"
)

func TestSortDocuments_IntegerKeysFirst(t *testing.T) {
	docs := []domain.Document{{Key: "10"}, {Key: "-Nb"}, {Key: "2"}, {Key: "-Na"}, {Key: "0"}}
	domain.SortDocuments(docs)

	want := []string{"0", "2", "10", "-Na", "-Nb"}
	for i, k := range want {
		if docs[i].Key != k {
			t.Fatalf("pos %d: want %s got %s (all=%v)", i, k, docs[i].Key, docs)
		}
	}
}

func TestIdentity_Username(t *testing.T) {
	cases := map[string]string{
		"li.wei@example.com": "li.wei",
		"noatsign":           "noatsign",
		"":                   "",
	}
	for email, want := range cases {
		if got := (domain.Identity{Email: email}).Username(); got != want {
			t.Fatalf("%q: want %q got %q", email, want, got)
		}
	}
}
