package s3client

import (
	"bytes"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/rs/zerolog"
	"text2phenotype.com/ctcdecode/logger"
)

const jsonContentType = "application/json"

// Client reads emission batches from and writes decoding results to one bucket.
type Client struct {
	holder     *sessionHolder
	bucketName string
	env        EnvironmentConfig
}

var clientLogger = logger.NewLogger("S3Client")
var sdkLogger = logger.NewLogger("S3-SDK")

func New() (*Client, error) {
	env, err := readEnvironment()
	if err != nil {
		clientLogger.Err(err).Caller().Msg("Failed to get proper variables from environment")
		return nil, err
	}
	client := &Client{
		bucketName: env.BucketName,
		env:        env,
	}
	if err = client.startSessionHolder(); err != nil {
		return nil, err
	}
	return client, nil
}

// UploadJSON stores a JSON document under key.
func (client *Client) UploadJSON(data []byte, key string) (*s3manager.UploadOutput, error) {
	params := &s3manager.UploadInput{
		Bucket:      aws.String(client.bucketName),
		Key:         aws.String(key),
		ContentType: aws.String(jsonContentType),
	}
	var output *s3manager.UploadOutput
	err := client.withSession(func(sess *session.Session) error {
		var err error
		params.Body = bytes.NewReader(data)
		output, err = client.upload(sess, params)
		return err
	})
	return output, err
}

func (client *Client) Download(key string) ([]byte, error) {
	params := &s3.GetObjectInput{
		Bucket: aws.String(client.bucketName),
		Key:    aws.String(key),
	}
	var data []byte
	err := client.withSession(func(sess *session.Session) error {
		var err error
		data, err = client.download(sess, params)
		return err
	})
	return data, err
}

func (client *Client) Close() {
	client.holder.closeCh <- struct{}{}
}

// withSession runs op and retries it once on a refreshed session.
func (client *Client) withSession(op func(sess *session.Session) error) error {
	sess, err := client.session()
	if err != nil {
		return err
	}
	if err = op(sess); err == nil {
		return nil
	}
	sess, err = client.tryRefreshingSession(err)
	if err != nil {
		return err
	}
	return op(sess)
}

func objectLoggers(bucket string, key string) (zerolog.Logger, zerolog.Logger) {
	return clientLogger.With().Str("key", key).Str("bucket", bucket).Logger(),
		sdkLogger.With().Str("key", key).Str("bucket", bucket).Logger()
}

func (client *Client) upload(sess *session.Session, params *s3manager.UploadInput) (*s3manager.UploadOutput, error) {
	ctcLogger, sdkLog := objectLoggers(*params.Bucket, *params.Key)
	uploader := s3manager.NewUploader(sess.Copy(&aws.Config{Logger: newSDKLogger(sdkLog)}))
	ctcLogger.Debug().Msg("Uploading the file")
	return uploader.Upload(params)
}

func (client *Client) download(sess *session.Session, params *s3.GetObjectInput) ([]byte, error) {
	ctcLogger, sdkLog := objectLoggers(*params.Bucket, *params.Key)
	downloader := s3manager.NewDownloader(sess.Copy(&aws.Config{Logger: newSDKLogger(sdkLog)}))
	buf := aws.NewWriteAtBuffer([]byte{})

	ctcLogger.Debug().Msg("Downloading file")
	size, err := downloader.Download(buf, params)
	if err != nil {
		ctcLogger.Error().Err(err).Msg("Failed to download file")
		return nil, err
	}
	ctcLogger.Debug().Msgf("Downloaded %v bytes", size)
	return buf.Bytes(), nil
}
