package orchestrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlist-labs/brokerscan/internal/model"
	"github.com/unlist-labs/brokerscan/internal/source"
)

// detailFake scripts the detail scrape on top of fakeExtractor.
type detailFake struct {
	fakeExtractor
	profile   *model.PersonProfile
	detailErr error
}

func (f *detailFake) ScrapeDetail(context.Context, string, *model.ProfileMatch) (*model.PersonProfile, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return f.profile, nil
}

func TestMergeDetailsUnionsSources(t *testing.T) {
	a := &detailFake{
		fakeExtractor: fakeExtractor{kind: source.KindTruePeopleSearch},
		profile: &model.PersonProfile{
			Name:   "Jane A Doe",
			Age:    47,
			Phones: []model.Phone{{Number: "(312) 555-0141"}},
			Emails: []string{"jane.doe@example.com"},
			Source: "truepeoplesearch",
		},
	}
	b := &detailFake{
		fakeExtractor: fakeExtractor{kind: source.KindRadaris},
		profile: &model.PersonProfile{
			Name:   "Jane Doe",
			Phones: []model.Phone{{Number: "312-555-0141"}, {Number: "(312) 555-0199"}},
			Emails: []string{"JANE.DOE@example.com"},
			Source: "radaris",
		},
	}

	reg := source.NewRegistry()
	reg.Register(a)
	reg.Register(b)
	eng := New(reg, ModeExhaustive, 2)

	merged, err := eng.MergeDetails(context.Background(), []SourceURL{
		{Kind: source.KindTruePeopleSearch, URL: "https://tps.example/p/1"},
		{Kind: source.KindRadaris, URL: "https://radaris.example/p/1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Jane A Doe", merged.FullName, "first source's scalar wins")
	assert.Equal(t, 47, merged.Age)
	assert.Len(t, merged.Phones, 2, "shared number appears once")
	assert.Len(t, merged.Emails, 1)
	assert.Equal(t, []string{"truepeoplesearch", "radaris"}, merged.Sources)
}

func TestMergeDetailsSkipsFailedPairs(t *testing.T) {
	a := &detailFake{
		fakeExtractor: fakeExtractor{kind: source.KindTruePeopleSearch},
		detailErr:     errors.New("blocked"),
	}
	b := &detailFake{
		fakeExtractor: fakeExtractor{kind: source.KindRadaris},
		profile:       &model.PersonProfile{Name: "Jane Doe", Source: "radaris"},
	}

	reg := source.NewRegistry()
	reg.Register(a)
	reg.Register(b)
	eng := New(reg, ModeExhaustive, 2)

	merged, err := eng.MergeDetails(context.Background(), []SourceURL{
		{Kind: source.KindTruePeopleSearch, URL: "https://tps.example/p/1"},
		{Kind: source.KindRadaris, URL: "https://radaris.example/p/1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", merged.FullName)
	assert.Equal(t, []string{"radaris"}, merged.Sources)
}

func TestMergeDetailsAllFailed(t *testing.T) {
	a := &detailFake{
		fakeExtractor: fakeExtractor{kind: source.KindTruePeopleSearch},
		detailErr:     errors.New("blocked"),
	}

	reg := source.NewRegistry()
	reg.Register(a)
	eng := New(reg, ModeExhaustive, 2)

	_, err := eng.MergeDetails(context.Background(), []SourceURL{
		{Kind: source.KindTruePeopleSearch, URL: "https://tps.example/p/1"},
	})
	require.Error(t, err)

	_, err = eng.MergeDetails(context.Background(), nil)
	require.Error(t, err, "empty pair list is invalid input")
}
