// Package progress provides progress reporting for retrieval runs.
//
// Files are retrieved one at a time, so the reporter prints one line when a
// file starts and one when it reaches its final state.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    TotalFiles: len(files),
//	    Output:     os.Stdout,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	reporter.FileStarted(name)
//	reporter.FileSucceeded(size)
//
// # Output Format
//
//	[warcfetch] Source: https://partner.archive-it.org/wasapi/v1/webdata?collection=5425
//	[warcfetch] Files: 12 | Total size: 11.20 GB
//	[warcfetch] (1/12) ARCHIVEIT-5425-MONTHLY-JOB302671-20170526114117181-00049.warc.gz
//	[warcfetch] (1/12) ARCHIVEIT-5425-MONTHLY-JOB302671-20170526114117181-00049.warc.gz: ok | 41s | 23.10 MB/s
//	[warcfetch] Done: 11 retrieved | 1 invalid checksum | 0 not retrieved
package progress
