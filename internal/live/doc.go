/*
Package live exposes a notebook to browser clients over socket.io.

The server forwards notebook events:

	document:snapshot   full document, sent on connect and after structural edits
	cell:status         {id, status, step}
	cell:dependency     {id}
	cell:render-params  {id, rendered?}
	cell:error          {id, error?}

and accepts editing commands, each answered through the acknowledgement
callback with {ok, id?, error?}:

	cell:insert     {index, kind, source}
	cell:update     {id, source}
	cell:delete     {id}
	cell:move       {id, index}
	cell:run        {id}
	document:rerun  {}

Watch is the matching client used by the CLI to tail a running server.
*/
package live
