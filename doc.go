/*
Package ddnsd keeps DNS records pointing at the current public address of the host.

Usage will always start with [ddnsd.New],
which takes a [Provider] for the DNS service, a [Resolver] that looks up the address,
and the [Target] records to manage.
[Reconciler.Cycle] performs a single check;
[Reconciler.Start] runs checks on an interval until [Reconciler.Stop] is called or the context is cancelled.

Each check reads every record and writes only the ones whose stored address differs from the resolved one.
Results, countdown ticks and state changes are reported to a [Sink];
see [LogSink] and [LineSink].
Additional configuration options are listed in the docs for New.
*/
package ddnsd
