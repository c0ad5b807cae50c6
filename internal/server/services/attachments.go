package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akarpov/taskdeck/internal/common"
	"github.com/akarpov/taskdeck/internal/dbx"
	sc "github.com/akarpov/taskdeck/internal/server/config"
	"github.com/akarpov/taskdeck/internal/server/models"
	"github.com/akarpov/taskdeck/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const presignValidity = 15 * time.Minute

// AttachmentService manages task file attachments stored in an
// S3-compatible object store. The server never proxies file bytes;
// clients upload and download through short-lived presigned URLs.
type AttachmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewAttachmentService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config) *AttachmentService {
	return &AttachmentService{
		db:          db,
		repomanager: repomanager,
		config:      config,
	}
}

func makeStorageKey(taskID string) string {
	d := time.Now()
	return fmt.Sprintf("tasks/%s/%d/%d/%d/%v", taskID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *AttachmentService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// CreateUpload registers a pending attachment on an owned task and returns
// it along with a presigned PUT URL the client uploads the file to.
func (s *AttachmentService) CreateUpload(ctx context.Context, userID, taskID, fileName string) (*models.Attachment, string, error) {

	if fileName == "" {
		return nil, "", common.NewValidationError().Add("file_name", "is required")
	}

	if _, err := s.repomanager.Tasks(s.db).GetByID(ctx, userID, taskID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorNotFound
		}
		return nil, "", common.ErrorInternal
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	bucket := s.config.S3Bucket
	key := makeStorageKey(taskID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	attachment := &models.Attachment{
		ID:           uuid.NewString(),
		TaskID:       taskID,
		UserID:       userID,
		FileName:     fileName,
		StorageKey:   key,
		UploadStatus: models.UploadPending,
	}
	if err := s.repomanager.Attachments(s.db).Create(ctx, attachment); err != nil {
		return nil, "", common.ErrorInternal
	}

	return attachment, req.URL, nil
}

// GetDownloadURL returns a presigned GET URL for an attachment the caller
// owns via its parent task. The first download request for a pending
// attachment flips it to completed; the client reaching for the file is
// the confirmation that the upload happened.
func (s *AttachmentService) GetDownloadURL(ctx context.Context, userID, attachmentID string) (string, error) {

	attachmentsRepo := s.repomanager.Attachments(s.db)

	attachment, err := attachmentsRepo.GetOwned(ctx, userID, attachmentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		return "", common.ErrorInternal
	}

	if attachment.UploadStatus == models.UploadPending {
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return s.repomanager.Attachments(tx).MarkCompleted(ctx, attachment.ID)
		})
		if err != nil {
			return "", common.ErrorInternal
		}
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", common.ErrorInternal
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &attachment.StorageKey,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", common.ErrorInternal
	}

	return req.URL, nil
}
