/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package pod

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config carries the endpoint/path-style override knobs non-AWS
// S3-compatible services (minio, Ceph RGW) need.
type S3Config struct {
	Bucket         string
	Prefix         string
	Region         string
	Endpoint       string // non-empty to target an S3-compatible service
	ForcePathStyle bool
	AccessKey      string
	SecretKey      string
}

// S3POD stores keys as objects in a single bucket, flat (no real
// directories — Ls/IsDir are approximated with a "/" delimiter
// listing).
type S3POD struct {
	cfg    S3Config
	mu     sync.Mutex
	client *s3.Client
}

// NewS3POD constructs an S3POD; the client is created lazily on first use
// so constructing one never touches the network.
func NewS3POD(cfg S3Config) *S3POD {
	return &S3POD{cfg: cfg}
}

func (p *S3POD) ensureClient(ctx context.Context) (*s3.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if p.cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(p.cfg.Region))
	}
	if p.cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.cfg.AccessKey, p.cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	p.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if p.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(p.cfg.Endpoint)
		}
		o.UsePathStyle = p.cfg.ForcePathStyle
	})
	return p.client, nil
}

func (p *S3POD) key(relpath string) string {
	return Join(p.cfg.Prefix, relpath)
}

func (p *S3POD) Cd(relpath string) POD {
	cfg := p.cfg
	cfg.Prefix = Join(cfg.Prefix, relpath)
	return &S3POD{cfg: cfg, client: p.client}
}

func (p *S3POD) Read(ctx context.Context, relpath string) ([]byte, error) {
	cli, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	out, err := cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(p.key(relpath)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (p *S3POD) Write(ctx context.Context, relpath string, data []byte, force bool) (int, bool, error) {
	cli, err := p.ensureClient(ctx)
	if err != nil {
		return 0, false, err
	}
	if !force {
		if _, err := cli.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(p.cfg.Bucket),
			Key:    aws.String(p.key(relpath)),
		}); err == nil {
			return 0, false, nil
		}
	}
	_, err = cli.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(p.key(relpath)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return 0, false, err
	}
	return len(data), true, nil
}

func (p *S3POD) Ls(ctx context.Context, relpath string, missingOK bool) ([]string, error) {
	cli, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	prefix := p.key(relpath)
	if prefix != "" {
		prefix += "/"
	}
	out, err := cli.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(p.cfg.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, err
	}
	var names []string
	for _, cp := range out.CommonPrefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
		names = append(names, name)
	}
	for _, obj := range out.Contents {
		name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 && !missingOK {
		return nil, ErrNotFound
	}
	sort.Strings(names)
	return names, nil
}

func (p *S3POD) Walk(ctx context.Context, maxDepth int) ([]string, error) {
	cli, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	prefix := p.key("")
	if prefix != "" {
		prefix += "/"
	}
	var out []string
	var token *string
	for {
		resp, err := cli.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(p.cfg.Bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range resp.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if maxDepth > 0 && len(splitPath(rel)) > maxDepth {
				continue
			}
			out = append(out, rel)
		}
		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		token = resp.NextContinuationToken
	}
	sort.Strings(out)
	return out, nil
}

func (p *S3POD) Rm(ctx context.Context, relpath string, recursive bool) error {
	cli, err := p.ensureClient(ctx)
	if err != nil {
		return err
	}
	if recursive {
		names, err := p.Walk(ctx, 0) // rel paths under this POD's whole prefix
		if err != nil {
			return err
		}
		for _, n := range names {
			if n != relpath && !strings.HasPrefix(n, relpath+"/") {
				continue
			}
			if _, err := cli.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(p.cfg.Bucket),
				Key:    aws.String(p.key(n)),
			}); err != nil {
				return err
			}
		}
		return nil
	}
	if !p.IsFile(ctx, relpath) {
		if p.IsDir(ctx, relpath) {
			return errors.New("pod: " + relpath + " is a non-empty directory")
		}
		return ErrNotFound
	}
	_, err = cli.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(p.key(relpath)),
	})
	return err
}

func (p *S3POD) Mv(ctx context.Context, from, to string) error {
	data, err := p.Read(ctx, from)
	if err != nil {
		return err
	}
	if _, _, err := p.Write(ctx, to, data, true); err != nil {
		return err
	}
	return p.Rm(ctx, from, false)
}

func (p *S3POD) IsFile(ctx context.Context, relpath string) bool {
	cli, err := p.ensureClient(ctx)
	if err != nil {
		return false
	}
	_, err = cli.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(p.key(relpath)),
	})
	return err == nil
}

func (p *S3POD) IsDir(ctx context.Context, relpath string) bool {
	names, err := p.Ls(ctx, relpath, true)
	return err == nil && len(names) > 0
}
