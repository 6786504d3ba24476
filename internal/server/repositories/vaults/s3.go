package vaults

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/server/models"
	"github.com/fxamacker/cbor/v2"
)

// Seams for tests.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Options struct {
	Region       string
	User         string
	Password     string
	BaseEndpoint string
	Bucket       string
}

// S3Repository keeps each vault as a single object; a PutObject replaces
// it whole.
type S3Repository struct {
	client objectAPI
	bucket string
	now    func() time.Time
}

// s3Object is the stored form of a vault.
type s3Object struct {
	Version    int       `cbor:"1,keyasint"`
	IV         []byte    `cbor:"2,keyasint"`
	Ciphertext []byte    `cbor:"3,keyasint"`
	Tag        []byte    `cbor:"4,keyasint"`
	UpdatedAt  time.Time `cbor:"5,keyasint"`
}

func NewS3Repository(ctx context.Context, o S3Options) (*S3Repository, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.User, o.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(opts *s3.Options) {
		if o.BaseEndpoint != "" {
			opts.BaseEndpoint = aws.String(o.BaseEndpoint)
		}
		opts.UsePathStyle = true
	})

	return newS3Repository(client, o.Bucket), nil
}

func newS3Repository(client objectAPI, bucket string) *S3Repository {
	return &S3Repository{client: client, bucket: bucket, now: time.Now}
}

func objectKey(userID string) string {
	return "vaults/" + userID
}

func (r *S3Repository) Get(ctx context.Context, userID string) (*models.Vault, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objectKey(userID)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("s3 get: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read: %w", err)
	}

	var obj s3Object
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode vault object: %w", err)
	}

	return &models.Vault{
		UserID:     userID,
		Version:    obj.Version,
		IV:         obj.IV,
		Ciphertext: obj.Ciphertext,
		Tag:        obj.Tag,
		UpdatedAt:  obj.UpdatedAt,
	}, nil
}

func (r *S3Repository) Put(ctx context.Context, v *models.Vault) (*models.Vault, error) {
	v.UpdatedAt = r.now().UTC()

	raw, err := cbor.Marshal(s3Object{
		Version:    v.Version,
		IV:         v.IV,
		Ciphertext: v.Ciphertext,
		Tag:        v.Tag,
		UpdatedAt:  v.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode vault object: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(objectKey(v.UserID)),
		Body:          bytes.NewReader(raw),
		ContentLength: aws.Int64(int64(len(raw))),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put: %w", err)
	}
	return v, nil
}
