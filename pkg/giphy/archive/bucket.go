package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/googleapis/gax-go/v2"
	"gocloud.dev/blob"
	"gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob" // file:// bucket URLs
	"gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob" // mem:// bucket URLs
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
	"golang.org/x/oauth2"
)

// S3Params configure an AWS S3 bucket.
// Empty credentials mean the default AWS credentials chain.
type S3Params struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Endpoint of an S3 compatible storage, for example MinIO.
	Endpoint     string
	UsePathStyle bool
}

// GCSParams configure a Google Cloud Storage bucket.
// An empty AccessToken means the default Google credentials.
type GCSParams struct {
	Bucket      string
	AccessToken string
	TokenType   string
}

// AzureParams configure an Azure Blob Storage container.
type AzureParams struct {
	// ContainerURL with a SAS token, for example "https://<account>.blob.core.windows.net/<container>?<sas>".
	ContainerURL string
}

// Open opens a bucket by the URL, for example "file:///tmp/gifs", "mem://", "s3://bucket?region=us-east-1",
// "gs://bucket" or "azblob://container".
func Open(ctx context.Context, bucketURL string) (*blob.Bucket, error) {
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf(`cannot open bucket "%s": %w`, bucketURL, err)
	}
	return b, nil
}

// OpenS3 opens an AWS S3 bucket, nil transport means the default AWS transport.
// The AWS_CA_BUNDLE applies to the default transport only.
func OpenS3(ctx context.Context, params S3Params, transport http.RoundTripper) (*blob.Bucket, error) {
	if params.Bucket == "" {
		return nil, errors.New("s3 bucket is not set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if params.Region != "" {
		opts = append(opts, awsconfig.WithRegion(params.Region))
	}
	if params.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKeyID,
			params.SecretAccessKey,
			params.SessionToken,
		)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if params.Endpoint != "" {
			o.BaseEndpoint = aws.String(params.Endpoint)
		}
		o.UsePathStyle = params.UsePathStyle
		// Set here, LoadDefaultConfig rejects a custom client if AWS_CA_BUNDLE is set
		if transport != nil {
			o.HTTPClient = &http.Client{Transport: transport}
		}
	})
	b, err := s3blob.OpenBucketV2(ctx, client, params.Bucket, nil)
	if err != nil {
		return nil, fmt.Errorf(`cannot open s3 bucket "%s": %w`, params.Bucket, err)
	}
	return b, nil
}

// OpenGCS opens a Google Cloud Storage bucket, nil transport means the default GCP transport.
func OpenGCS(ctx context.Context, params GCSParams, transport http.RoundTripper) (*blob.Bucket, error) {
	if params.Bucket == "" {
		return nil, errors.New("gcs bucket is not set")
	}

	var tokenSource oauth2.TokenSource
	if params.AccessToken != "" {
		tokenSource = oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: params.AccessToken,
			TokenType:   params.TokenType,
		})
	} else {
		creds, err := gcp.DefaultCredentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot load gcp credentials: %w", err)
		}
		tokenSource = gcp.CredentialsTokenSource(creds)
	}

	if transport == nil {
		transport = gcp.DefaultTransport()
	}
	client, err := gcp.NewHTTPClient(transport, tokenSource)
	if err != nil {
		return nil, err
	}
	b, err := gcsblob.OpenBucket(ctx, client, params.Bucket, nil)
	if err != nil {
		return nil, fmt.Errorf(`cannot open gcs bucket "%s": %w`, params.Bucket, err)
	}

	var gcsClient *storage.Client
	if !b.As(&gcsClient) {
		_ = b.Close()
		return nil, errors.New("unable to access storage.Client through Bucket.As")
	}
	gcsClient.SetRetry(
		storage.WithBackoff(gax.Backoff{Initial: 100 * time.Millisecond, Max: 5 * time.Second, Multiplier: 2}),
		storage.WithPolicy(storage.RetryIdempotent),
	)
	return b, nil
}

// OpenAzure opens an Azure Blob Storage container, nil transport means the default Azure transport.
func OpenAzure(ctx context.Context, params AzureParams, transport http.RoundTripper) (*blob.Bucket, error) {
	if params.ContainerURL == "" {
		return nil, errors.New("azure container url is not set")
	}

	opts := &container.ClientOptions{}
	if transport != nil {
		opts.ClientOptions = azcore.ClientOptions{Transport: &http.Client{Transport: transport}}
	}
	client, err := container.NewClientWithNoCredential(params.ContainerURL, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot create azure container client: %w", err)
	}
	b, err := azureblob.OpenBucket(ctx, client, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot open azure container: %w", err)
	}
	return b, nil
}
