// Package list implements paged key listing for bucket scans.
package list

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// DefaultPageSize is used when a request does not carry a page size.
const DefaultPageSize int32 = 1000

// S3Interface defines the S3 operations we need.
type S3Interface interface {
	ListObjectsV2(
		ctx context.Context,
		input *s3.ListObjectsV2Input,
		opts ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)
}

// Lister fetches single pages of object keys.
type Lister struct {
	client S3Interface
}

// New creates a new Lister.
func New(client S3Interface) *Lister {
	return &Lister{
		client: client,
	}
}

// List fetches one page. A continuation token takes precedence over
// StartAfter, matching ListObjectsV2 semantics.
func (l *Lister) List(ctx context.Context, in *s3types.ListInput) (*s3types.ListPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(in.Bucket),
		MaxKeys: aws.Int32(pageSize(in.PageSize)),
	}

	if in.ContinuationToken != "" {
		input.ContinuationToken = aws.String(in.ContinuationToken)
	} else if in.StartAfter != "" {
		input.StartAfter = aws.String(in.StartAfter)
	}

	output, err := l.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, errors.NewError("listObjects", fmt.Errorf("%w: %w", errors.ErrListFailed, err)).
			WithBucket(in.Bucket).
			WithKind(errors.KindPagination)
	}

	return convertOutput(output), nil
}

// PageSource is anything that can serve a page of keys.
type PageSource interface {
	ListObjects(ctx context.Context, in *s3types.ListInput) (*s3types.ListPage, error)
}

// Paginator walks a bucket page by page starting after a given key.
type Paginator struct {
	source            PageSource
	bucket            string
	pageSize          int32
	startAfter        string
	continuationToken string
	hasMorePages      bool
	firstPage         bool
	pages             int
}

// NewPaginator creates a paginator over source. The first request uses
// startAfter; subsequent requests follow the continuation token.
func NewPaginator(source PageSource, bucket string, size int32, startAfter string) *Paginator {
	return &Paginator{
		source:     source,
		bucket:     bucket,
		pageSize:   pageSize(size),
		startAfter: startAfter,
		firstPage:  true,
	}
}

// HasMorePages returns true if there are more pages to fetch.
func (p *Paginator) HasMorePages() bool {
	return p.firstPage || p.hasMorePages
}

// Pages returns how many pages have been fetched successfully.
func (p *Paginator) Pages() int {
	return p.pages
}

// NextPage fetches the next page of keys. Errors that are not already fatal
// to a run are classified as pagination failures. A failed call leaves the
// paginator positioned on the same page.
func (p *Paginator) NextPage(ctx context.Context) (*s3types.ListPage, error) {
	in := &s3types.ListInput{
		Bucket:   p.bucket,
		PageSize: p.pageSize,
	}
	if !p.firstPage && p.continuationToken != "" {
		in.ContinuationToken = p.continuationToken
	} else {
		in.StartAfter = p.startAfter
	}

	page, err := p.source.ListObjects(ctx, in)
	if err != nil {
		if errors.KindOf(err).Fatal() {
			return nil, err
		}
		return nil, errors.NewError("listObjects", fmt.Errorf("%w: %w", errors.ErrListFailed, err)).
			WithBucket(p.bucket).
			WithKind(errors.KindPagination)
	}

	p.pages++
	p.firstPage = false
	p.continuationToken = page.NextContinuationToken
	p.hasMorePages = page.NextContinuationToken != ""

	return page, nil
}

// convertOutput converts S3 output to a ListPage.
func convertOutput(output *s3.ListObjectsV2Output) *s3types.ListPage {
	page := &s3types.ListPage{
		Keys: make([]string, 0, len(output.Contents)),
	}

	if aws.ToBool(output.IsTruncated) {
		page.NextContinuationToken = aws.ToString(output.NextContinuationToken)
	}

	for _, obj := range output.Contents {
		page.Keys = append(page.Keys, aws.ToString(obj.Key))
	}

	return page
}

func pageSize(size int32) int32 {
	if size > 0 && size <= DefaultPageSize {
		return size
	}
	return DefaultPageSize
}
