// Package media 为项目封面、附图、路演材料和身份证明生成对象存储引用
//
// 项目记录里只保存对象 URL，文件本身由客户端通过预签名 URL 直接上传到 S3。
package media

import (
	"context"
	"fmt"
	"fundverse/config"
	"fundverse/internal/global/errs"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// ErrNotConfigured 未配置 bucket
var ErrNotConfigured = errors.New("media storage not configured")

type Kind string

const (
	KindCover      Kind = "cover"
	KindAdditional Kind = "additional"
	KindPitchDeck  Kind = "pitch_deck"
	KindIDProof    Kind = "id_proof"
)

const DefaultExpires = 15 * time.Minute

// 每种引用允许的 MIME 类型前缀
var allowed = map[Kind][]string{
	KindCover:      {"image/"},
	KindAdditional: {"image/"},
	KindPitchDeck:  {"application/pdf", "application/vnd.ms-powerpoint", "application/vnd.openxmlformats-officedocument.presentationml"},
	KindIDProof:    {"image/", "application/pdf"},
}

func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	_, ok := allowed[k]
	return k, ok
}

type UploadRequest struct {
	Kind        Kind          `json:"kind"`
	CampaignID  string        `json:"campaignId"`
	Filename    string        `json:"filename"`
	ContentType string        `json:"contentType"`
	Expires     time.Duration `json:"-"`
}

// PresignedUpload 客户端按 Method 和 Headers 上传后，把 FileURL 写入项目
type PresignedUpload struct {
	UploadURL string            `json:"uploadUrl"`
	FileKey   string            `json:"fileKey"`
	FileURL   string            `json:"fileUrl"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
}

type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type Store struct {
	cfg      config.S3
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	now      func() time.Time
}

// Enabled 配置了 bucket 才启用
func Enabled(cfg config.S3) bool {
	return cfg.Bucket != ""
}

func New(ctx context.Context, cfg config.S3) (*Store, error) {
	if !Enabled(cfg) {
		return nil, ErrNotConfigured
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Store{
		cfg:      cfg,
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
		now:      time.Now,
	}, nil
}

// ObjectKey prefix/campaignID/kind/<纳秒时间戳><扩展名>
func (s *Store) ObjectKey(kind Kind, campaignID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	owner := strings.Trim(campaignID, "/")
	if owner == "" {
		owner = "unassigned"
	}
	key := path.Join(strings.Trim(s.cfg.Prefix, "/"), owner, string(kind), fmt.Sprintf("%d%s", s.now().UnixNano(), ext))
	return strings.TrimLeft(key, "/")
}

// URL 上传成功后的访问地址
func (s *Store) URL(key string) string {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	if base == "" {
		base = strings.TrimRight(s.cfg.Endpoint, "/")
	}
	if base == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
	}
	if s.cfg.UsePathStyle {
		return base + "/" + s.cfg.Bucket + "/" + key
	}
	return base + "/" + key
}

// PresignUpload 生成 PUT 预签名地址，文件类型不符合引用种类时返回 *errs.ValidationError
func (s *Store) PresignUpload(ctx context.Context, req UploadRequest) (*PresignedUpload, error) {
	contentType, err := checkRequest(req)
	if err != nil {
		return nil, err
	}
	expires := req.Expires
	if expires <= 0 {
		expires = DefaultExpires
	}

	key := s.ObjectKey(req.Kind, req.CampaignID, req.Filename)
	presigned, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return nil, errors.Wrap(err, "presign upload")
	}

	resp := &PresignedUpload{
		UploadURL: presigned.URL,
		FileKey:   key,
		FileURL:   s.URL(key),
		ExpiresAt: s.now().Add(expires),
		Method:    presigned.Method,
		Headers:   map[string]string{"Content-Type": contentType},
	}
	for k, v := range presigned.SignedHeader {
		if len(v) > 0 && !strings.EqualFold(k, "host") {
			resp.Headers[k] = v[0]
		}
	}
	return resp, nil
}

// PresignDownload 私有 bucket 下的临时访问地址
func (s *Store) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = time.Hour
	}
	presigned, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", errors.Wrap(err, "presign download")
	}
	return presigned.URL, nil
}

// Upload 由服务端直接上传，CLI 附带本地文件时使用
func (s *Store) Upload(ctx context.Context, req UploadRequest, body io.Reader) (*Object, error) {
	contentType, err := checkRequest(req)
	if err != nil {
		return nil, err
	}
	key := s.ObjectKey(req.Kind, req.CampaignID, req.Filename)
	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}); err != nil {
		return nil, errors.Wrap(err, "upload object")
	}
	return &Object{Key: key, URL: s.URL(key)}, nil
}

// checkRequest 返回最终使用的 Content-Type
func checkRequest(req UploadRequest) (string, error) {
	fields := make(map[string]string)
	prefixes, ok := allowed[req.Kind]
	if !ok {
		fields["kind"] = "Kind must be cover, additional, pitch_deck or id_proof"
	}
	if strings.TrimSpace(req.Filename) == "" {
		fields["filename"] = "Filename is required"
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(path.Ext(req.Filename)))
	}
	if ok && !matches(prefixes, contentType) {
		fields["contentType"] = fmt.Sprintf("Content type %q is not allowed for %s", contentType, req.Kind)
	}
	if len(fields) > 0 {
		return "", errs.NewValidation(fields)
	}
	return contentType, nil
}

func matches(prefixes []string, contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(mt, p) {
			return true
		}
	}
	return false
}
