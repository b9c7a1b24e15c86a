// Package websync implements a stateless gateway that lets several devices
// share one text buffer and a common file inbox kept in an S3-compatible
// bucket.
//
// The gateway never stores anything itself. Text is relayed to and from a
// single notepad object, and file bytes never pass through the gateway:
// browsers receive presigned grants and talk to the bucket directly.
//
// # Key Components
//
//   - Signer: holds the storage credentials, signs relayed requests and
//     presigned grants with AWS Signature V4
//   - Bucket: turns object keys into bucket URLs, virtual-hosted or path-style,
//     with an optional public base for download links
//   - ParseCatalog: reads a ListObjectsV2 document into StoredObject records,
//     skipping malformed records
//   - Issuer: issues upload grants for new keys and download grants for
//     listed objects
//   - Notepad: get and put of the shared text object
//   - Gateway: the service the http package serves
//
// # Example Usage
//
//	bucket, err := websync.NewBucket(websync.BucketConfig{
//	    Endpoint:  "https://s3.eu-west-1.amazonaws.com",
//	    Bucket:    "my-sync",
//	    Region:    "eu-west-1",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	signer := websync.NewSigner(websync.SignerConfig{
//	    Credentials: credentials.NewStaticCredentialsProvider(ak, sk, ""),
//	    Region:      "eu-west-1",
//	})
//
//	gateway := websync.NewGateway(signer, bucket, websync.GatewayConfig{})
//	text, err := gateway.ReadText(ctx)
//
// See the http package for the HTTP surface and the keybackend package for
// credential sources.
package websync
