// Package clientcli provides a client library for a web-sync gateway.
//
// It reads and replaces the shared notepad, lists the file inbox, and uploads,
// downloads and deletes inbox files. File bytes never pass through the
// gateway: uploads PUT to the presigned grant returned by sign-upload, and
// downloads GET the presigned URL carried by each listing entry.
//
// # Basic Usage
//
//	client, err := clientcli.New(&clientcli.Config{Endpoint: "http://localhost:8080"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	text, err := client.GetText(ctx)
//
//	results, err := client.Upload(ctx, clientcli.UploadOptions{
//		LocalPath: "./report.pdf",
//	})
//
// # Gateway File
//
// Named gateways live in ~/.websync/config.yaml:
//
//	gateways, err := clientcli.LoadGateways(clientcli.DefaultConfigPath())
//	endpoint, err := gateways.Endpoint("home")
//	client, err := clientcli.New(&clientcli.Config{Endpoint: endpoint})
//
// # Output Formatting
//
// Use formatters for human-readable or JSON output:
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatUpload(os.Stdout, results)
package clientcli
