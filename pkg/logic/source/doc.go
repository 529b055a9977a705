// Package source loads condition libraries from disk and keeps them
// available to evaluators.
//
// A FileSource parses and validates one library file or every library file
// in a directory tree. A Registry holds the loaded libraries by name and is
// swapped atomically on reload. A Watcher observes the source path with
// fsnotify and reloads the registry after a quiet period:
//
//	src := source.NewFileSource("modules/", logger)
//	reg := source.NewRegistry()
//	w, err := source.NewWatcher(cfg, src, reg, logger)
//	if err != nil {
//		return err
//	}
//	if err := w.Reload(ctx); err != nil {
//		return err
//	}
//	go w.Watch(ctx)
//
// A reload that fails leaves the previously loaded libraries in place.
package source
