// Package s3test provides an in-memory, S3-compatible bucket server for tests.
//
// The server speaks the subset of the S3 API the gateway uses: object
// GET/HEAD/PUT/DELETE, bucket HEAD and ListObjectsV2 with continuation
// tokens. Buckets are path-style addressed. Every request must carry a valid
// AWS Signature V4, either in the Authorization header or as presigned query
// parameters; anything else is rejected with 403 SignatureDoesNotMatch.
//
//	srv := s3test.New(s3test.Config{
//	    Bucket:    "sync",
//	    Region:    "us-east-1",
//	    AccessKey: "AKIDEXAMPLE",
//	    SecretKey: "secret",
//	})
//	defer srv.Close()
//
//	bucket, _ := websync.NewBucket(websync.BucketConfig{
//	    Endpoint:  srv.URL(),
//	    Bucket:    "sync",
//	    Region:    "us-east-1",
//	    PathStyle: true,
//	})
package s3test
