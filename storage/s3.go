package storage

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"
	"tutortrack_go/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

type StorageService struct {
	s3Client *s3.S3
	bucket   string
}

// NewStorageService creates a new storage service
func NewStorageService() (*StorageService, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AppConfig.AWSRegion),
		Credentials: credentials.NewStaticCredentials(
			config.AppConfig.AWSAccessKeyID,
			config.AppConfig.AWSSecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		bucket:   config.AppConfig.S3BucketName,
	}, nil
}

// UploadAvatar uploads a profile image to S3 and returns its public URL.
func (s *StorageService) UploadAvatar(file *multipart.FileHeader, userID uint) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %v", err)
	}
	defer src.Close()

	fileBytes, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}

	ext := fileExtension(file.Filename)

	// Generate unique key
	now := time.Now()
	randomID := uuid.New().String()[:16]
	key := fmt.Sprintf("avatars/%d/%d/%02d/%s.%s",
		userID,
		now.Year(),
		now.Month(),
		randomID,
		ext,
	)

	_, err = s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(fileBytes),
		ContentType: aws.String(contentType(ext)),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.bucket,
		config.AppConfig.AWSRegion,
		key,
	)

	return url, nil
}

// DeleteFile deletes a file from S3 given its public URL.
func (s *StorageService) DeleteFile(fileURL string) error {
	prefix := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, config.AppConfig.AWSRegion)
	key := strings.TrimPrefix(fileURL, prefix)
	if key == fileURL {
		return fmt.Errorf("URL does not belong to bucket %s", s.bucket)
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func fileExtension(filename string) string {
	parts := strings.Split(filename, ".")
	if len(parts) < 2 {
		return "bin"
	}
	return strings.ToLower(parts[len(parts)-1])
}

func contentType(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
