// Package minio ships payload objects to MinIO or any S3-compatible bucket
// through the native MinIO client, with no AWS SDK involved. It suits
// self-hosted object storage where the AWS credential chain has nothing to
// resolve.
//
//	client, err := minio.New(endpoint, &minio.Options{
//	    Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
//	    Secure: true,
//	})
//	if err != nil {
//	    return err
//	}
//	store := minioblob.NewStore(client, "telemetry", "prod/")
//
// Put writes an object in one request; Create streams large objects as
// multipart uploads. Reads are ranged, so consumers can pull an envelope
// header without fetching the payload.
package minio
