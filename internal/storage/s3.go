// Package storage 负责工资单文件内容的存取，
// 文件存放在 S3 兼容的对象存储中（生产环境为 MinIO），
// 对象键按 payslips/{用户ID}/{文件名} 组织。
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sysu-ecnc-dev/payslip-portal/backend/internal/config"
)

// PayslipStore 是 handler 依赖的文件存储接口，测试中用假实现替换
type PayslipStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys []string) error
}

type S3Store struct {
	cfg           *config.Config
	client        *s3.Client
	presignClient *s3.PresignClient
}

func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3.BaseEndpoint)
		o.UsePathStyle = true // MinIO 需要 path-style 寻址
	})

	return &S3Store{
		cfg:           cfg,
		client:        client,
		presignClient: s3.NewPresignClient(client),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.S3.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	return err
}

// PresignGet 返回带签名的临时下载链接，客户端直接从对象存储下载文件
func (s *S3Store) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.S3.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(time.Duration(s.cfg.S3.PresignExpire)*time.Second))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// Delete 尽力删除一组对象，遇到错误返回第一个错误
func (s *S3Store) Delete(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.S3.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			return err
		}
	}
	return nil
}

// PayslipKey 生成工资单文件的对象键，文件名会先被净化
func PayslipKey(userID int64, filename string) string {
	return fmt.Sprintf("payslips/%d/%s", userID, SanitizeFilename(filename))
}

// SanitizeFilename 去掉路径部分并将危险字符替换为下划线，防止路径穿越。
// 净化后如果为空则回退到固定文件名。
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.Trim(b.String(), ".")
	if cleaned == "" {
		return "payslip"
	}
	return cleaned
}
