package central

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Presigner hands out short-lived presigned PUT URLs so agents upload
// screenshot files straight to object storage instead of through the API.
type Presigner struct {
	client *s3.PresignClient
	bucket string
	expiry time.Duration
}

func NewPresigner(ctx context.Context, region, endpoint, accessKey, secretKey, bucket string) (*Presigner, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Presigner{
		client: s3.NewPresignClient(client),
		bucket: bucket,
		expiry: 15 * time.Minute,
	}, nil
}

// PresignPut returns a fresh storage key and a URL that accepts a single
// PUT of the screenshot file until the URL expires.
func (p *Presigner) PresignPut(ctx context.Context, employeeID string) (key, url string, err error) {
	d := time.Now().UTC()
	key = fmt.Sprintf("screenshots/%s/%d/%02d/%02d/%s.png", employeeID, d.Year(), d.Month(), d.Day(), uuid.NewString())

	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", "", fmt.Errorf("presign put: %w", err)
	}
	return key, req.URL, nil
}
