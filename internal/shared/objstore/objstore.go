package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound indica chave ausente no bucket; é a única condição de storage
// que os callers tratam como recuperável.
var ErrNotFound = errors.New("objstore: object not found")

type Options struct {
	Endpoint       string // host[:porta], com ou sem esquema
	Region         string
	AccessKeyID    string
	SecretKey      string
	ForcePathStyle bool
}

// Client é uma instância explícita por configuração; nada de singleton
// de processo escondido em variável de pacote.
type Client struct {
	mc     *minio.Client
	bucket string
}

func New(bucket string, opts Options) (*Client, error) {
	endpoint := opts.Endpoint
	secure := true
	if strings.HasPrefix(endpoint, "http://") {
		endpoint = strings.TrimPrefix(endpoint, "http://")
		secure = false
	} else {
		endpoint = strings.TrimPrefix(endpoint, "https://")
	}

	lookup := minio.BucketLookupDNS
	if opts.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}

	mc, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKeyID, opts.SecretKey, ""),
		Secure:       secure,
		Region:       opts.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: new client: %w", err)
	}
	return &Client{mc: mc, bucket: bucket}, nil
}

// Exists faz um HEAD no objeto.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.mc.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("objstore: stat %q: %w", key, err)
	}
	return true, nil
}

// Get baixa o objeto inteiro em memória. Chave ausente vira ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("objstore: get %q: %w", key, err)
	}
	defer obj.Close()

	// o minio só materializa NoSuchKey na primeira leitura do stream
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("objstore: get %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("objstore: read %q: %w", key, err)
	}
	return data, nil
}

// Put sobrescreve o objeto incondicionalmente; não existe compare-and-swap
// no contrato de storage.
func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("objstore: put %q: %w", key, err)
	}
	return nil
}

// PresignGet gera uma URL assinada de leitura; é o que o caminho analítico
// no browser usa para consultar o objeto direto do bucket.
func (c *Client) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("objstore: presign %q: %w", key, err)
	}
	return u.String(), nil
}

// Healthy verifica o acesso ao bucket; usada pelo /healthz.
func (c *Client) Healthy(ctx context.Context) error {
	ok, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q não existe", c.bucket)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}

// IsNotFound cobre tanto o sentinel local quanto erros minio crus.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || isNoSuchKey(err)
}
