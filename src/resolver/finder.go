package resolver

import (
	"context"
	"errors"

	"arcalog/src/contracts"
	"arcalog/src/provider"
)

// Chain asks each finder in turn. Only a not-found answer moves on to the
// next finder; any other error is returned as is. Builds unknown to every
// finder yield the last finder's *provider.NotFoundError.
func Chain(finders ...Finder) Finder {
	return chain(finders)
}

type chain []Finder

func (c chain) FindBuild(ctx context.Context, buildID string) (*contracts.BuildRecord, error) {
	err := error(&provider.NotFoundError{BuildID: buildID})
	for _, f := range c {
		var record *contracts.BuildRecord
		record, err = f.FindBuild(ctx, buildID)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, provider.ErrBuildNotFound) {
			return nil, err
		}
	}
	return nil, err
}
