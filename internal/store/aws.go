package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-logr/logr"
)

// S3Publisher uploads outputs under <job id>/ in the bucket. When Domain is
// set the object is served from that host, otherwise a presigned URL valid for
// Expires is returned.
type S3Publisher struct {
	Client  *s3.Client
	Bucket  string
	Domain  string
	Expires time.Duration
}

func (p *S3Publisher) Publish(ctx context.Context, jobID, file string) (string, error) {
	key := objectKey(jobID, file)
	log := logr.FromContextOrDiscard(ctx).WithValues(
		"key", key,
		"content-type", contentType(file),
		"bucket", p.Bucket,
	)
	log.Info("uploading to s3")

	body, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer body.Close()

	_, err = p.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.Bucket),
		Key:          aws.String(key),
		ContentType:  aws.String(contentType(file)),
		Body:         body,
		Metadata:     map[string]string{"job-id": jobID},
		StorageClass: s3types.StorageClassIntelligentTiering,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	if p.Domain != "" {
		return fmt.Sprintf("https://%s/%s", p.Domain, key), nil
	}

	req, err := s3.NewPresignClient(p.Client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.Expires))
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return req.URL, nil
}

// DistributionDomain looks up the public host name of a CloudFront
// distribution fronting the bucket.
func DistributionDomain(ctx context.Context, client *cloudfront.Client, id string) (string, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("distribution", id)
	log.Info("resolving cloudfront domain")

	out, err := client.GetDistribution(ctx, &cloudfront.GetDistributionInput{
		Id: aws.String(id),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(aws.ToString(out.Distribution.DomainName), "."), nil
}
