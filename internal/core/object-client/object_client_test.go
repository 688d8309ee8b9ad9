package objectclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/markdave123-py/Clausewise/internal/config"
)

func TestNewSelectsDriver(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, &cfg.Config{StorageDriver: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = New(ctx, &cfg.Config{StorageDriver: "ftp"})
	assert.ErrorContains(t, err, "unknown STORAGE_DRIVER")

	_, err = New(ctx, &cfg.Config{StorageDriver: "s3", AwsRegion: "us-east-2", BucketName: "b"})
	assert.ErrorContains(t, err, "AWS credentials not set")

	_, err = New(ctx, &cfg.Config{StorageDriver: "minio", BucketName: "b"})
	assert.ErrorContains(t, err, "MINIO_ENDPOINT")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "contracts/abc/nda.pdf", Key("contracts", "abc", "nda.pdf"))
	assert.Equal(t, "contracts/abc/nda.pdf", Key("contracts", "abc", `C:\Users\me\nda.pdf`))
	assert.Equal(t, "exports/abc/file", Key("exports", "abc", ""))
	assert.Equal(t, "contracts/abc/passwd", Key("contracts", "abc", "../../etc/passwd"))
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000/b/k.pdf", objectURL("localhost:9000", false, "b", "k.pdf"))
	assert.Equal(t, "https://minio.example/b/k.pdf", objectURL("minio.example", true, "b", "k.pdf"))
}
