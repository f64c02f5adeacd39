package scan

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of the S3 client the scanner uses.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// s3Scanner lists objects in a bucket, optionally under a prefix. Credentials
// come from the ambient AWS configuration chain.
type s3Scanner struct {
	bucket string
	prefix string
	region string
	client s3API

	// newClient is swapped in tests.
	newClient func(ctx context.Context) (s3API, error)
}

// NewS3Scanner builds a cloud scanner from a config with keys bucket
// (required), prefix and region (optional).
func NewS3Scanner(config map[string]string) (Scanner, error) {
	bucket := config["bucket"]
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 scanner requires bucket", ErrInvalidConfig)
	}
	s := &s3Scanner{
		bucket: bucket,
		prefix: config["prefix"],
		region: config["region"],
	}
	s.newClient = func(ctx context.Context) (s3API, error) {
		var opts []func(*awsconfig.LoadOptions) error
		if s.region != "" {
			opts = append(opts, awsconfig.WithRegion(s.region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return s3.NewFromConfig(cfg), nil
	}
	return s, nil
}

func (s *s3Scanner) Connect(ctx context.Context) error {
	client, err := s.newClient(ctx)
	if err != nil {
		return fmt.Errorf("%w: aws config: %v", ErrTransient, err)
	}
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("%w: head bucket %q: %v", ErrTransient, s.bucket, err)
	}
	s.client = client
	return nil
}

func (s *s3Scanner) Discover(ctx context.Context, opts DiscoverOptions) (Discovery, error) {
	if s.client == nil {
		return Discovery{}, fmt.Errorf("%w: discover before connect", ErrInvalidConfig)
	}
	d := Discovery{Metadata: map[string]string{"bucket": s.bucket}}
	if s.prefix != "" {
		d.Metadata["prefix"] = s.prefix
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}
	for {
		page, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return Discovery{}, fmt.Errorf("%w: list objects: %v", ErrTransient, err)
		}
		for _, obj := range page.Contents {
			if opts.MaxAssets > 0 && len(d.Assets) >= opts.MaxAssets {
				d.Count = len(d.Assets)
				return d, nil
			}
			key := aws.ToString(obj.Key)
			d.Assets = append(d.Assets, Asset{
				Name:     key,
				Location: "s3://" + s.bucket + "/" + key,
				Metadata: map[string]string{
					"size_bytes": strconv.FormatInt(aws.ToInt64(obj.Size), 10),
				},
			})
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		input.ContinuationToken = page.NextContinuationToken
	}
	d.Count = len(d.Assets)
	return d, nil
}

func (s *s3Scanner) Metadata(ctx context.Context, assetName string) (map[string]string, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: metadata before connect", ErrInvalidConfig)
	}
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(assetName),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: head object %q: %v", ErrTransient, assetName, err)
	}
	meta := map[string]string{
		"bucket":     s.bucket,
		"key":        assetName,
		"size_bytes": strconv.FormatInt(aws.ToInt64(head.ContentLength), 10),
	}
	if head.ContentType != nil {
		meta["content_type"] = aws.ToString(head.ContentType)
	}
	return meta, nil
}

func (s *s3Scanner) Close() error {
	s.client = nil
	return nil
}
