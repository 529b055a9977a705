// Package git loads condition libraries from a Git repository.
//
// A Repository clones the configured branch into a local directory; the
// libraries are then read from that directory by a source.FileSource. A
// Poller pulls the branch on an interval and reloads the registry when a
// commit touches library files.
//
//	repo, err := git.NewRepository(cfg.Library.Git)
//	if err != nil {
//		return err
//	}
//	if err := repo.Clone(ctx); err != nil {
//		return err
//	}
//	src := source.NewFileSource(repo.LibraryPath(), logger)
//
//	poller, err := git.NewPoller(repo, cfg.Library.Git.Poll.Interval, func(ctx context.Context) error {
//		_, err := src.LoadInto(ctx, registry)
//		return err
//	}, logger)
//	go poller.Run(ctx)
//
// A commit whose libraries fail to load is not applied: the registry keeps
// the libraries of the last commit that loaded, and the poller waits for
// the next commit.
package git
