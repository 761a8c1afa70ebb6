package schema

// Text2Img is the input contract of the text-to-image job.
//
// prior_steps is numeric to the model (a step count or a comma separated list
// of timesteps) but clients have always sent it as a string, so it stays one.
var Text2Img = Schema{
	{Name: "text", Arg: "prompt", Kind: String, Required: true},
	{Name: "num_steps", Kind: Integer, Default: 100},
	{Name: "batch_size", Kind: Integer, Default: 1},
	{Name: "guidance_scale", Kind: Float, Default: 4.0},
	{Name: "h", Kind: Integer, Default: 768},
	{Name: "w", Kind: Integer, Default: 768},
	{Name: "sampler", Kind: String, Default: "p_sampler"},
	{Name: "prior_cf_scale", Kind: Float, Default: 4.0},
	{Name: "prior_steps", Kind: String, Default: "5"},
	{Name: "negative_prior_prompt", Kind: String, Default: ""},
	{Name: "negative_decoder_prompt", Kind: String, Default: ""},
}
