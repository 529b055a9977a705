/*
Package cli provides command-line interface utilities for carepath.

The cli package includes output formatters, a test case reporter, and common
CLI helpers used by the carepath command.

Output Formatting:

Command results can be printed as text, JSON, YAML, a table or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, records); err != nil {
		return err
	}

Table and CSV output require data implementing Table.

Test Reporting:

	reporter := cli.NewReporter(os.Stdout, verbose)
	reporter.Pass("adult / 40 year old")
	reporter.Fail("adult / 17 year old", "got true, want false")
	if err := reporter.Finish(); err != nil {
		return err // *cli.TestFailureError
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
